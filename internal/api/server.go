// Package api exposes the query engine over HTTP. Every /api/v1 response
// is wrapped in the APIResponse envelope; /health stays bare so probes can
// parse it without unwrapping.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"devchat/internal/logging"
	"devchat/internal/query"
)

// Server is the HTTP front end over a query.Engine.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	addr      string
	logger    *logging.Logger
	engine    *query.Engine
	startedAt time.Time
}

// NewServer creates a server bound to addr, serving the given engine.
func NewServer(addr string, engine *query.Engine, logger *logging.Logger) *Server {
	s := &Server{
		addr:      addr,
		logger:    logger,
		engine:    engine,
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start blocks serving requests until Shutdown or a listen failure.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully", nil)
	return nil
}

// ServeHTTP implements http.Handler so tests can drive the full middleware
// chain without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the router; the last wrap runs first per request.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware()(handler)
	return handler
}
