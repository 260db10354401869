// Package errors defines the stable error codes and error type used across
// the devchat engine. Degraded conditions carry a code so callers can react
// without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseError indicates a source file could not be parsed
	ParseError ErrorCode = "PARSE_ERROR"
	// ResolutionAmbiguity indicates a reference resolved to multiple candidates
	ResolutionAmbiguity ErrorCode = "RESOLUTION_AMBIGUITY"
	// DanglingReference indicates an edge endpoint that no longer exists
	DanglingReference ErrorCode = "DANGLING_REFERENCE"
	// QueryNotFound indicates a query target doesn't exist in the snapshot
	QueryNotFound ErrorCode = "QUERY_NOT_FOUND"
	// IndexOverload indicates the watcher event queue overflowed
	IndexOverload ErrorCode = "INDEX_OVERLOAD"
	// EmbeddingUnavailable indicates the embedding backend failed or is absent
	EmbeddingUnavailable ErrorCode = "EMBEDDING_UNAVAILABLE"
	// RootNotFound indicates the project root path doesn't exist
	RootNotFound ErrorCode = "ROOT_NOT_FOUND"
	// StorageError indicates a persistence failure
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// EngineError represents a devchat error with a stable code
type EngineError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new EngineError
func New(code ErrorCode, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// Wrap creates a new EngineError wrapping a cause
func Wrap(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *EngineError) WithDetails(details interface{}) *EngineError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
