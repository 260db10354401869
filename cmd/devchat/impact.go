package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var impactCmd = &cobra.Command{
	Use:   "impact <file-or-symbol>",
	Short: "Analyze change impact",
	Long: `Analyze the blast radius of changing a file or symbol: who imports or
calls it directly, and what is reachable from there through the reverse
dependency chain.

The reference can be a node id, a file path (or unique path suffix), a
path::name pair, or a bare symbol name.

Examples:
  devchat impact app/models.py
  devchat impact models.py::save_user
  devchat impact save_user`,
	Args: cobra.ExactArgs(1),
	Run:  runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) {
	logger := newLogger()
	ref := args[0]

	engine := mustGetEngine(logger)
	ctx := newContext()

	if err := engine.EnsureIndexed(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error building index: %v\n", err)
		os.Exit(1)
	}

	impact, err := engine.Impact(ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing impact: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatResponse(impact, outputFormat())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
