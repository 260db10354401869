package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"devchat/internal/version"
)

// HealthResponse is the bare /health payload.
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	Uptime     string    `json:"uptime"`
	IndexState string    `json:"indexState"`
	Generation uint64    `json:"generation"`
}

// QueryRequest is the POST /api/v1/query body.
type QueryRequest struct {
	Question string `json:"question"`
}

// FilesResponse lists every indexed file.
type FilesResponse struct {
	Files []string `json:"files"`
	Total int      `json:"total"`
}

// handleHealth responds to liveness checks. A degraded index is still
// alive, so the status code stays 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	stats := s.engine.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    version.Version,
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		IndexState: string(stats.State),
		Generation: stats.Generation,
	})
}

// handleQuery answers a free-text question. Unknown targets come back as a
// typed not-found result inside a success envelope, not as an HTTP error.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(w, r, "question is required")
		return
	}

	result := s.engine.Query(r.Context(), req.Question)
	writeData(w, r, result)
}

// handleFiles lists indexed file paths.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	files := s.engine.Files()
	writeData(w, r, FilesResponse{Files: files, Total: len(files)})
}

// handleFileInfo returns one file with its symbols and import neighborhood.
func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/files/")
	if path == "" {
		badRequest(w, r, "file path is required")
		return
	}

	info, err := s.engine.FileInfo(path)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeData(w, r, info)
}

// handleImpact runs impact analysis from a file or symbol reference.
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	ref := strings.TrimPrefix(r.URL.Path, "/api/v1/impact/")
	if ref == "" {
		badRequest(w, r, "file or symbol reference is required")
		return
	}

	impact, err := s.engine.Impact(ref)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeData(w, r, impact)
}

// handleStoreInteractions lists symbols that touch data stores, optionally
// narrowed by ?kind=read or ?kind=write.
func (s *Server) handleStoreInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != "read" && kind != "write" {
		badRequest(w, r, "kind must be 'read' or 'write'")
		return
	}

	writeData(w, r, s.engine.StoreInteractions(kind))
}

// handleSearch runs semantic search. n defaults to the configured top-k.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, r, "query parameter 'q' is required")
		return
	}

	n := 0
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed < 1 {
			badRequest(w, r, "query parameter 'n' must be a positive integer")
			return
		}
		n = parsed
	}

	matches, err := s.engine.Search(r.Context(), q, n)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeData(w, r, map[string]interface{}{
		"query":   q,
		"matches": matches,
		"total":   len(matches),
	})
}

// handleStats returns the read-side view of the index.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	writeData(w, r, s.engine.Stats())
}

// handleCodeMap returns the visualization projection of the snapshot.
func (s *Server) handleCodeMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	writeData(w, r, s.engine.CodeMap())
}

// handleRescan forces a full rescan and returns its report.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	report, err := s.engine.Rescan(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeData(w, r, report)
}
