package api

import (
	"net/http"

	"devchat/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Liveness check, unwrapped
	s.router.HandleFunc("/health", s.handleHealth)

	// Question answering
	s.router.HandleFunc("/api/v1/query", s.handleQuery) // POST {"question": ...}

	// Graph lookups
	s.router.HandleFunc("/api/v1/files", s.handleFiles)      // GET
	s.router.HandleFunc("/api/v1/files/", s.handleFileInfo)  // GET /api/v1/files/:path
	s.router.HandleFunc("/api/v1/impact/", s.handleImpact)   // GET /api/v1/impact/:ref
	s.router.HandleFunc("/api/v1/store-interactions", s.handleStoreInteractions)

	// Semantic search
	s.router.HandleFunc("/api/v1/search", s.handleSearch) // GET /api/v1/search?q=...&n=...

	// Index state
	s.router.HandleFunc("/api/v1/stats", s.handleStats)
	s.router.HandleFunc("/api/v1/map", s.handleCodeMap)
	s.router.HandleFunc("/api/v1/rescan", s.handleRescan) // POST

	// Root endpoint
	s.router.HandleFunc("/", s.handleRoot)
}

// handleRoot describes the API surface
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeEnvelopeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such route: "+r.URL.Path, nil)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	writeData(w, r, map[string]interface{}{
		"name":    "devchat HTTP API",
		"version": version.Version,
		"root":    s.engine.Root(),
		"endpoints": []string{
			"GET /health - Health check",
			"POST /api/v1/query - Answer a free-text question about the codebase",
			"GET /api/v1/files - List indexed files",
			"GET /api/v1/files/:path - File detail with symbols and import neighborhood",
			"GET /api/v1/impact/:ref - Impact analysis from a file or symbol",
			"GET /api/v1/store-interactions?kind=read|write - Symbols touching data stores",
			"GET /api/v1/search?q=query&n=5 - Semantic search over the index",
			"GET /api/v1/stats - Index statistics",
			"GET /api/v1/map - Code map projection of the current snapshot",
			"POST /api/v1/rescan - Force a full rescan",
		},
	})
}
