// Package orcid provides an HTTP client for the ORCID public API with
// automatic retry, backoff, and error classification.
package orcid

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, orcid.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("orcid: bad request")
	ErrUnauthorized = errors.New("orcid: unauthorized")
	ErrForbidden    = errors.New("orcid: forbidden")
	ErrNotFound     = errors.New("orcid: not found")
	ErrThrottled    = errors.New("orcid: throttled")
	ErrServerError  = errors.New("orcid: server error")
)

// APIError wraps a sentinel error with the HTTP status code and response
// body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orcid: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return fmt.Errorf("orcid: unexpected status %d", code)
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
