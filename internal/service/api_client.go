package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/passa-a-bola/web/internal/port/outbound"
)

// UnauthorizedPolicy decides what happens to the session when a protected
// call is rejected with 401.
type UnauthorizedPolicy string

const (
	// UnauthorizedIgnore returns the error and keeps the session.
	UnauthorizedIgnore UnauthorizedPolicy = "ignore"
	// UnauthorizedLogout clears the session before returning the error.
	UnauthorizedLogout UnauthorizedPolicy = "logout"
)

// ParseUnauthorizedPolicy parses a policy name. "" means UnauthorizedIgnore.
func ParseUnauthorizedPolicy(s string) (UnauthorizedPolicy, error) {
	switch p := UnauthorizedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", UnauthorizedIgnore:
		return UnauthorizedIgnore, nil
	case UnauthorizedLogout:
		return UnauthorizedLogout, nil
	default:
		return "", fmt.Errorf("unknown unauthorized policy %q", s)
	}
}

// APIClient performs backend calls on behalf of the current session.
// It attaches the session's bearer token to every request.
type APIClient struct {
	store   *SessionStore
	backend outbound.Backend
	policy  UnauthorizedPolicy
	logger  *slog.Logger
}

// NewAPIClient creates an API client bound to store.
func NewAPIClient(store *SessionStore, backend outbound.Backend, policy UnauthorizedPolicy, logger *slog.Logger) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = UnauthorizedIgnore
	}
	return &APIClient{
		store:   store,
		backend: backend,
		policy:  policy,
		logger:  logger,
	}
}

// Policy returns the unauthorized policy in effect.
func (c *APIClient) Policy() UnauthorizedPolicy {
	return c.policy
}

// Do sends req with the session token unless req already carries one.
// Anonymous sessions send no Authorization header.
func (c *APIClient) Do(ctx context.Context, req outbound.Request) (*outbound.Response, error) {
	if req.Token == "" {
		req.Token = c.store.Token()
	}

	resp, err := c.backend.Do(ctx, req)
	if err != nil {
		if req.Token != "" && errors.Is(err, outbound.ErrUnauthorized) {
			c.handleUnauthorized(ctx, req.Path, req.Token)
		}
		return nil, err
	}
	return resp, nil
}

// handleUnauthorized applies the policy to a rejected token. Only the
// session that owns the token is logged out; a token passed explicitly or
// replaced by a newer login leaves the current session alone.
func (c *APIClient) handleUnauthorized(ctx context.Context, path, token string) {
	c.store.metrics.unauthorized(c.policy)
	switch c.policy {
	case UnauthorizedLogout:
		if c.store.logoutToken(ctx, token) {
			c.logger.Warn("token rejected, logged out", "path", path)
			return
		}
		c.logger.Warn("token rejected, session kept: token is not the current one", "path", path)
	default:
		c.logger.Warn("token rejected", "path", path)
	}
}

// Get calls GET path and decodes the JSON response into out (if non-nil).
func (c *APIClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, outbound.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post calls POST path with in as JSON body (if non-nil) and decodes the
// response into out (if non-nil).
func (c *APIClient) Post(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, outbound.Request{Method: http.MethodPost, Path: path, JSON: in}, out)
}

// Delete calls DELETE path.
func (c *APIClient) Delete(ctx context.Context, path string) error {
	return c.call(ctx, outbound.Request{Method: http.MethodDelete, Path: path}, nil)
}

func (c *APIClient) call(ctx context.Context, req outbound.Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.Path, err)
	}
	return nil
}
