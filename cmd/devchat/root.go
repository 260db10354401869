package main

import (
	"devchat/internal/version"

	"github.com/spf13/cobra"
)

var (
	rootFlag      string
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	jsonFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "devchat",
	Short: "devchat - codebase intelligence engine",
	Long: `devchat builds a live structural and semantic index of a codebase and
answers questions about it: what breaks if a file changes, who calls a
function, which symbols touch the database, and free-text semantic search.
The index stays consistent as files change.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("devchat version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Project root to index")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file (default <root>/.devchat/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "human",
		"Log format: human or json")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false,
		"Output results as JSON")
}
