// Package endpoint resolves the backend origin for the current execution side.
//
// Pages rendered by the server reach the backend through an internal network
// address. Code delivered to the browser must never see that address and
// issues same-origin relative requests instead, which the reverse proxy
// forwards to the backend. Every outgoing request is built through a Resolver
// so the rest of the program never branches on the execution side itself.
package endpoint

import (
	"strings"
)

// DefaultInternalURL is the backend origin used server-side when no internal
// origin is configured.
const DefaultInternalURL = "http://backend:8000"

// Side identifies where the code building a request runs.
type Side string

const (
	// SideServer is the process that renders pages (and the CLI).
	SideServer Side = "server"
	// SideClient is code running in the user's browser.
	SideClient Side = "client"
)

// IsValid returns true if the side is a known side.
func (s Side) IsValid() bool {
	switch s {
	case SideServer, SideClient:
		return true
	default:
		return false
	}
}

// Config holds the configured origins. Empty values fall back to defaults.
type Config struct {
	// InternalURL is the backend origin reachable from the server side.
	InternalURL string
	// PublicURL is the backend origin exposed to browsers. Optional.
	PublicURL string
}

// Resolver is an immutable snapshot of the endpoint configuration for one
// execution side. The same Resolver always produces the same results.
type Resolver struct {
	side Side
	base string
}

// NewResolver builds a Resolver for the given side. An unknown side is
// treated as SideServer.
func NewResolver(cfg Config, side Side) Resolver {
	if !side.IsValid() {
		side = SideServer
	}

	var base string
	switch side {
	case SideClient:
		base = strings.TrimSpace(cfg.PublicURL)
	default:
		base = strings.TrimSpace(cfg.InternalURL)
		if base == "" {
			base = DefaultInternalURL
		}
	}

	return Resolver{
		side: side,
		base: strings.TrimRight(base, "/"),
	}
}

// Side returns the execution side this resolver was built for.
func (r Resolver) Side() Side {
	if r.side == "" {
		return SideServer
	}
	return r.side
}

// ResolveBase returns the backend origin for the current side. On the client
// side it is the public origin or "" when none is configured, meaning paths
// are relative to the current page.
func (r Resolver) ResolveBase() string {
	if r.side == "" {
		return DefaultInternalURL
	}
	return r.base
}

// ResolvePath converts a logical API path into the path to request. The
// server side gets an absolute URL; the client side gets the logical path
// unchanged so that the proxy can forward it.
func (r Resolver) ResolvePath(logicalPath string) string {
	p := normalizePath(logicalPath)
	if r.Side() == SideClient {
		return p
	}
	return r.ResolveBase() + p
}

// ResolveURL is ResolvePath for callers that must issue a real request even
// on the client side. Relative results are joined onto pageOrigin, the origin
// the page was served from (the proxy). Absolute results are returned as is.
func (r Resolver) ResolveURL(logicalPath, pageOrigin string) string {
	resolved := r.ResolvePath(logicalPath)
	if isAbsolute(resolved) {
		return resolved
	}
	return strings.TrimRight(strings.TrimSpace(pageOrigin), "/") + resolved
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
