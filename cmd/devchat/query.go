package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about the codebase",
	Long: `Answer a free-text question about the codebase. The question is routed
to one of five intents: impact analysis, store interactions, caller lookup,
definition lookup, or semantic search.

Examples:
  devchat query "what breaks if I change models.py?"
  devchat query "who calls save_user?"
  devchat query "which functions write to the database?"
  devchat query "where is UserSession defined?"
  devchat query "authentication token refresh logic"`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	logger := newLogger()
	question := strings.Join(args, " ")

	engine := mustGetEngine(logger)
	ctx := newContext()

	if err := engine.EnsureIndexed(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error building index: %v\n", err)
		os.Exit(1)
	}

	result := engine.Query(ctx, question)

	output, err := FormatResponse(result, outputFormat())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
