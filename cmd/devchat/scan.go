package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full scan of the project root",
	Long: `Walk the project root, parse every supported source file and publish a
fresh index snapshot: the code graph (imports, calls, inheritance, store
access) and the semantic vector index.

Examples:
  devchat scan
  devchat scan --root ../myproject --json`,
	Run: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger()
	engine := mustGetEngine(logger)

	report, err := engine.Rescan(newContext())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatResponse(report, outputFormat())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("Scan completed", map[string]interface{}{
		"generation": report.Generation,
		"files":      report.FilesScanned,
		"durationMs": time.Since(start).Milliseconds(),
	})
}
