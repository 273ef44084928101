package upload

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common error conditions.
var (
	// ErrQuotaExceeded means the backend reported storage quota exhaustion.
	// This is terminal on first occurrence and must never be retried.
	ErrQuotaExceeded = errors.New("upload: storage quota exceeded, contact support")

	// ErrOutOfOrder means a chunk arrived with an unexpected sequence index.
	ErrOutOfOrder = errors.New("upload: chunk out of order")

	// ErrClosed is returned when uploading through a closed pipeline.
	ErrClosed = errors.New("upload: pipeline closed")
)

// APIError represents an error response from the backend upload endpoint.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the backend.
	Message string

	// Endpoint identifies which endpoint returned the error.
	Endpoint string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("upload [%s]: API error %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsQuota returns true if the backend reported storage quota exhaustion.
func (e *APIError) IsQuota() bool {
	return e.StatusCode == http.StatusInsufficientStorage
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRetryable returns true if the request should be retried.
// Quota exhaustion and lost authentication are never retried.
func (e *APIError) IsRetryable() bool {
	return !e.IsQuota() && !e.IsUnauthorized()
}

// TerminalError marks a chunk as undeliverable after the retry policy is
// exhausted or a non-retryable response arrives. It carries the attempt
// count so escalations can distinguish exhaustion from a one-shot refusal.
type TerminalError struct {
	Seq      int
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *TerminalError) Error() string {
	return fmt.Sprintf("upload: chunk %d failed permanently after %d attempt(s): %v", e.Seq, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *TerminalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the failure should end the session instead of
// degrading it (authentication lost).
func (e *TerminalError) IsFatal() bool {
	var apiErr *APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.IsUnauthorized()
	}
	return false
}
