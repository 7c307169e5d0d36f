// Package backend is the HTTP adapter for the REST backend.
//
// Every URL is built through an endpoint.Resolver: the client never holds a
// hardcoded host. On the client side the resolver yields relative paths,
// which are joined onto the configured page origin (the same-origin proxy).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/passa-a-bola/web/internal/domain/endpoint"
	"github.com/passa-a-bola/web/internal/domain/session"
	"github.com/passa-a-bola/web/internal/port/outbound"
)

// Default logical paths of the authentication and profile endpoints.
const (
	DefaultLoginPath   = "/auth/login"
	DefaultProfilePath = "/api/profiles/me"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 << 20

// Client talks to the backend over HTTP.
type Client struct {
	resolver    endpoint.Resolver
	pageOrigin  string
	loginPath   string
	profilePath string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// tokenResponse is the authentication endpoint's success payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// NewClient creates a backend client that resolves URLs through resolver.
// No request timeout is applied unless WithTimeout is given.
func NewClient(resolver endpoint.Resolver, opts ...Option) *Client {
	c := &Client{
		resolver:    resolver,
		loginPath:   DefaultLoginPath,
		profilePath: DefaultProfilePath,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Resolver returns the resolver the client builds URLs with.
func (c *Client) Resolver() endpoint.Resolver {
	return c.resolver
}

// URL returns the URL a logical path resolves to for this client.
func (c *Client) URL(logicalPath string) string {
	return c.resolver.ResolveURL(logicalPath, c.pageOrigin)
}

// Authenticate posts the credentials as form fields "username" and
// "password" and returns the issued token. A 2xx without a token is an error.
func (c *Client) Authenticate(ctx context.Context, creds session.Credentials) (outbound.Token, error) {
	form := url.Values{}
	form.Set("username", strings.TrimSpace(creds.Email))
	form.Set("password", creds.Password)

	resp, err := c.Do(ctx, outbound.Request{
		Method: http.MethodPost,
		Path:   c.loginPath,
		Form:   form,
	})
	if err != nil {
		return outbound.Token{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return outbound.Token{}, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tr.AccessToken == "" {
		return outbound.Token{}, fmt.Errorf("token response has no access_token")
	}

	return outbound.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		Role:        session.Role(tr.Role),
	}, nil
}

// FetchProfile fetches the token owner's profile.
func (c *Client) FetchProfile(ctx context.Context, token string) (*session.Profile, error) {
	resp, err := c.Do(ctx, outbound.Request{
		Method: http.MethodGet,
		Path:   c.profilePath,
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	return session.ParseProfile(resp.Body)
}

// Do performs an HTTP request against the resolved URL of req.Path.
func (c *Client) Do(ctx context.Context, req outbound.Request) (*outbound.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.URL(req.Path)
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var (
		bodyReader  io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		bodyReader = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		jsonBody, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &outbound.UnreachableError{URL: target, Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &outbound.APIError{
			StatusCode: httpResp.StatusCode,
			Detail:     errorDetail(respBody),
			Path:       req.Path,
		}
	}

	return &outbound.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// errorDetail extracts the human-readable message from an error payload.
// The backend sends {"detail": "..."} or, for validation errors,
// {"detail": [{"msg": "..."}]}.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var msg string
	if err := json.Unmarshal(payload.Detail, &msg); err == nil {
		return msg
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// Compile-time interface verification.
var _ outbound.Backend = (*Client)(nil)
