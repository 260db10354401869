package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"devchat/internal/config"
	"devchat/internal/logging"
	"devchat/internal/query"
)

var (
	engineOnce   sync.Once
	sharedEngine *query.Engine
	sharedConfig *config.Config
	engineErr    error
)

// getEngine returns a shared engine, lazily initialized on first use.
func getEngine(logger *logging.Logger) (*query.Engine, error) {
	engineOnce.Do(func() {
		root := mustResolveRoot()

		var cfg *config.Config
		var err error
		if configFlag != "" {
			cfg, err = config.LoadConfigFile(configFlag)
		} else {
			cfg, err = config.LoadConfig(root)
		}
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}
		if err := cfg.Validate(); err != nil {
			engineErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}

		engine, err := query.NewEngine(root, cfg, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to create engine: %w", err)
			return
		}
		sharedEngine = engine
		sharedConfig = cfg
	})

	return sharedEngine, engineErr
}

// mustGetEngine returns the shared engine or exits on error.
func mustGetEngine(logger *logging.Logger) *query.Engine {
	engine, err := getEngine(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return engine
}

// mustResolveRoot resolves the --root flag or exits.
func mustResolveRoot() string {
	abs, err := filepath.Abs(rootFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving root: %v\n", err)
		os.Exit(1)
	}
	return abs
}

// newContext creates a context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger honoring the global flags.
func newLogger() *logging.Logger {
	format := logging.HumanFormat
	if logFormatFlag == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(logLevelFlag),
	})
}

// outputFormat picks the command output format from --json.
func outputFormat() OutputFormat {
	if jsonFlag {
		return FormatJSON
	}
	return FormatHuman
}
