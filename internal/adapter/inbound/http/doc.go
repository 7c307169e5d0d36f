// Package http provides the same-origin HTTP proxy.
//
// Code running in the browser never learns the backend's internal address.
// It sends relative requests to the origin that served the page, and this
// proxy forwards them to the backend over the internal network.
//
// # Usage
//
//	rules := http.DefaultRewriteRules()
//	proxy := http.NewProxy("http://backend:8000", rules, http.WithProxyLogger(logger))
//	transport := http.NewHTTPTransport(proxy,
//	    http.WithAddr("127.0.0.1:3000"),
//	    http.WithLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Rewrite rules
//
//	/api-proxy/:path*  -> <internal>/:path*
//	/api/:path*        -> <internal>/api/:path*
//	/auth/:path*       -> <internal>/auth/:path*
//
// Anything else gets a 404 JSON error.
//
// # Endpoints
//
//	GET /health   - health report (JSON)
//	GET /metrics  - Prometheus metrics
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. MetricsMiddleware - request count and duration
//  2. RequestIDMiddleware - X-Request-ID and per-request logger
//  3. DNSRebindingProtection - Origin allowlist (if configured)
//  4. Proxy - rewrite and forward
package http
