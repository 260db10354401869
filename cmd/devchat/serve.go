package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devchat/internal/api"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Index the project root, start the filesystem watcher and serve the HTTP
API. The index stays consistent as files change for as long as the server
runs.

Examples:
  devchat serve
  devchat serve --addr 0.0.0.0:9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	engine := mustGetEngine(logger)
	defer func() { _ = engine.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial scan before accepting traffic
	if err := engine.EnsureIndexed(ctx); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	if err := engine.StartWatching(ctx); err != nil {
		logger.Warn("Filesystem watcher unavailable, serving a static index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	addr := serveAddr
	if addr == "" && sharedConfig != nil {
		addr = sharedConfig.Server.Addr
	}
	if addr == "" {
		addr = "127.0.0.1:8450"
	}
	server := api.NewServer(addr, engine, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("devchat HTTP API listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})

		cancel()
		engine.StopWatching()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}

		logger.Info("Server stopped gracefully", nil)
	}

	return nil
}
