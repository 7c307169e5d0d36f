// Package service contains application services.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrInvalidCredentials is returned when credentials fail validation
	// before any request is made.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthenticated is returned by operations that need a logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrActionPending is returned when an optimistic action is already in flight.
	ErrActionPending = errors.New("action already pending")
)

// AuthError is returned when the backend refuses a credential exchange or
// answers it with something other than a token.
type AuthError struct {
	// StatusCode is the backend's HTTP status, 0 if the response was a 2xx
	// that could not be used.
	StatusCode int
	// Detail is the backend's message, shown to the user as is.
	Detail string
	// Cause is the underlying error.
	Cause error
}

// Error returns the backend detail, or a generic message.
func (e *AuthError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("login failed (status %d)", e.StatusCode)
	}
	return "login failed"
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}
