package main

import (
	"fmt"
	"os"
	"path/filepath"

	"devchat/internal/config"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize devchat configuration",
	Long:  "Creates a .devchat/ directory with default configuration under the project root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root := mustResolveRoot()

	configPath := filepath.Join(root, config.StateDirName, "config.json")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		// Idempotent: already initialized is success
		fmt.Println("devchat already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'devchat init --force' to overwrite.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Println("devchat initialized.")
	fmt.Printf("Configuration at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  devchat scan              # build the index")
	fmt.Println("  devchat query \"...\"       # ask a question")
	fmt.Println("  devchat serve             # start the HTTP API with live updates")
	return nil
}
