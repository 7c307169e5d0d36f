package outbound

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnauthorized matches 401 responses (bad credentials or a rejected token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden matches 403 responses.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrUnreachable is returned when the backend cannot be contacted.
	ErrUnreachable = errors.New("backend unreachable")
)

// APIError is a non-2xx backend response.
type APIError struct {
	// StatusCode is the HTTP status returned by the backend.
	StatusCode int
	// Detail is the human-readable message from the error payload, if any.
	Detail string
	// Path is the logical path that was requested.
	Path string
}

// Error returns a description of the failed call.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend %s returned %d: %s", e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend %s returned %d", e.Path, e.StatusCode)
}

// Is supports errors.Is(err, ErrUnauthorized), ErrForbidden and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

// UnreachableError is returned when the request never got a response
// (DNS, connection refused, TLS, timeout).
type UnreachableError struct {
	// URL is the resolved URL that was attempted.
	URL string
	// Cause is the transport error.
	Cause error
}

// Error returns a description of the transport failure.
func (e *UnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend unreachable at %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("backend unreachable at %s", e.URL)
}

// Unwrap returns the underlying transport error.
func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, ErrUnreachable).
func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}
