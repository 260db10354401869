package api

import (
	"encoding/json"
	"net/http"
	"time"

	"devchat/internal/errors"
	"devchat/internal/version"
)

// APIResponse is the standard response wrapper for /api/v1 endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    APIMeta     `json:"meta"`
}

// APIError carries an error code from the engine taxonomy, or a
// request-level code like INVALID_REQUEST for malformed input.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// APIMeta contains response metadata
type APIMeta struct {
	RequestID  string `json:"requestId"`
	DurationMs int64  `json:"durationMs"`
	Version    string `json:"version"`
}

func newMeta(r *http.Request) APIMeta {
	return APIMeta{
		RequestID:  GetRequestID(r.Context()),
		DurationMs: time.Since(requestStart(r.Context())).Milliseconds(),
		Version:    version.Version,
	}
}

// writeData writes a success envelope around data.
func writeData(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    newMeta(r),
	})
}

// writeEngineError maps an engine error to a status code and writes the
// failure envelope.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	apiErr := &APIError{Code: string(code), Message: err.Error()}
	if ee, ok := err.(*errors.EngineError); ok {
		apiErr.Message = ee.Message
		apiErr.Details = ee.Details
	}
	writeJSON(w, statusFor(code), APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    newMeta(r),
	})
}

// writeEnvelopeError writes a failure envelope with an explicit status and
// code, for request-level failures that never reached the engine.
func writeEnvelopeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
		Meta:    newMeta(r),
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeEnvelopeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeEnvelopeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		"method "+r.Method+" not allowed for "+r.URL.Path, nil)
}

// statusFor maps engine error codes to HTTP status codes.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.QueryNotFound, errors.RootNotFound:
		return http.StatusNotFound // 404
	case errors.ParseError, errors.ResolutionAmbiguity, errors.DanglingReference:
		return http.StatusUnprocessableEntity // 422
	case errors.EmbeddingUnavailable, errors.IndexOverload:
		return http.StatusServiceUnavailable // 503
	case errors.StorageError, errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// writeJSON writes a bare JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
