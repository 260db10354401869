package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statsHistory int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Show the current state of the index: node and edge counts, vector index
size, unresolved imports, generation and degradation state.

Examples:
  devchat stats
  devchat stats --history 10`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsHistory, "history", 0, "Also show the last N scans")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	logger := newLogger()
	engine := mustGetEngine(logger)

	stats := engine.Stats()

	if jsonFlag {
		payload := map[string]interface{}{"stats": stats}
		if statsHistory > 0 {
			history, err := engine.ScanHistory(statsHistory)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading scan history: %v\n", err)
				os.Exit(1)
			}
			payload["history"] = history
		}
		output, err := FormatResponse(payload, FormatJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	output, err := FormatResponse(stats, FormatHuman)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if statsHistory > 0 {
		history, err := engine.ScanHistory(statsHistory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading scan history: %v\n", err)
			os.Exit(1)
		}
		var b strings.Builder
		b.WriteString("Recent scans:\n")
		if len(history) == 0 {
			b.WriteString("  (none recorded)\n")
		}
		for _, rec := range history {
			flag := ""
			if rec.Degraded {
				flag = " DEGRADED"
			}
			b.WriteString(fmt.Sprintf("  gen %d  %-11s %4d files  %5d nodes  %5d edges  %4dms%s\n",
				rec.Generation, rec.ScanType, rec.FilesScanned, rec.Nodes, rec.Edges, rec.DurationMs, flag))
		}
		fmt.Println(b.String())
	}
}
