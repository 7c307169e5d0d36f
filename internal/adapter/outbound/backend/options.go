package backend

import (
	"log/slog"
	"net/http"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithPageOrigin sets the origin relative (client-side) paths are joined
// onto, typically the same-origin proxy (e.g. "http://localhost:3000").
func WithPageOrigin(origin string) Option {
	return func(c *Client) {
		c.pageOrigin = origin
	}
}

// WithLoginPath overrides the logical path of the authentication endpoint.
func WithLoginPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.loginPath = p
		}
	}
}

// WithProfilePath overrides the logical path of the profile endpoint.
func WithProfilePath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.profilePath = p
		}
	}
}

// WithTimeout sets the HTTP request timeout. Zero means none.
// Ignored when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom http.Client for making requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
