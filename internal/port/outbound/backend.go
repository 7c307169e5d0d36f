// Package outbound defines the outbound port interfaces for reaching the
// REST backend.
package outbound

import (
	"context"
	"net/http"
	"net/url"

	"github.com/passa-a-bola/web/internal/domain/session"
)

// Token is the result of a successful credential exchange.
type Token struct {
	AccessToken string
	TokenType   string
	Role        session.Role
}

// Request is a backend call addressed by its logical API path.
// At most one of JSON and Form is set.
type Request struct {
	Method string
	// Path is the logical path (e.g. "/api/feed/posts"); the adapter resolves it.
	Path  string
	Query url.Values
	// Token, when set, is sent as a bearer token.
	Token string
	JSON  any
	Form  url.Values
}

// Response is a raw 2xx backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Backend is the outbound port for the REST backend.
// Non-2xx responses are returned as *APIError; transport failures as
// *UnreachableError.
type Backend interface {
	// Authenticate exchanges credentials for an access token and role.
	Authenticate(ctx context.Context, creds session.Credentials) (Token, error)

	// FetchProfile returns the profile of the token's user.
	// Returns an error matching ErrNotFound if no profile exists yet.
	FetchProfile(ctx context.Context, token string) (*session.Profile, error)

	// Do performs an arbitrary backend call.
	Do(ctx context.Context, req Request) (*Response, error)
}
