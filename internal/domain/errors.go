package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrUnsupportedSource   = errors.New("unsupported source")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrSummarizationFailed = errors.New("summarization failed")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// UnsupportedSourceError indicates a URL or file type no extractor accepts
	UnsupportedSourceError struct {
		Message string
	}

	// ExtractionFailedError indicates the source was unreachable or unparseable.
	// Cause is kept for logging and never shown to clients.
	ExtractionFailedError struct {
		Message string
		Cause   error
	}

	// SummarizationFailedError indicates the LLM call failed
	SummarizationFailedError struct {
		Message string
		Cause   error
	}
)

func (e *NotFoundError) Error() string            { return e.Message }
func (e *ValidationError) Error() string          { return e.Message }
func (e *UnauthorizedError) Error() string        { return e.Message }
func (e *UnsupportedSourceError) Error() string   { return e.Message }
func (e *ExtractionFailedError) Error() string    { return e.Message }
func (e *SummarizationFailedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int            { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int          { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int        { return http.StatusUnauthorized }
func (e *UnsupportedSourceError) StatusCode() int   { return http.StatusBadRequest }
func (e *ExtractionFailedError) StatusCode() int    { return http.StatusBadGateway }
func (e *SummarizationFailedError) StatusCode() int { return http.StatusBadGateway }

func (e *NotFoundError) Is(target error) bool          { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool        { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool      { return target == ErrUnauthorized }
func (e *UnsupportedSourceError) Is(target error) bool { return target == ErrUnsupportedSource }
func (e *ExtractionFailedError) Is(target error) bool  { return target == ErrExtractionFailed }
func (e *SummarizationFailedError) Is(target error) bool {
	return target == ErrSummarizationFailed
}

func (e *ExtractionFailedError) Unwrap() error    { return e.Cause }
func (e *SummarizationFailedError) Unwrap() error { return e.Cause }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (content, theme)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
