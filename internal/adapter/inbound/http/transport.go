package http

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passa-a-bola/web/internal/port/inbound"
)

// HTTPTransport serves the same-origin proxy with /health and /metrics.
type HTTPTransport struct {
	proxy          *Proxy
	addr           string
	allowedOrigins []string
	certFile       string
	keyFile        string
	logger         *slog.Logger
	healthChecker  *HealthChecker
	registry       *prometheus.Registry
	metrics        *Metrics

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:3000" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithAllowedOrigins sets the Origin allowlist. Empty disables the check.
// Example: []string{"https://passabola.example", "http://localhost:3000"}
func WithAllowedOrigins(origins []string) Option {
	return func(t *HTTPTransport) {
		t.allowedOrigins = origins
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// WithRegistry sets the registry served on /metrics. Collectors registered
// by the caller (e.g. session metrics) are exposed alongside the proxy's.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(t *HTTPTransport) {
		t.registry = reg
	}
}

// NewHTTPTransport creates an HTTP transport serving proxy.
func NewHTTPTransport(proxy *Proxy, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		proxy:  proxy,
		addr:   "127.0.0.1:3000",
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.registry == nil {
		t.registry = prometheus.NewRegistry()
	}
	if t.healthChecker == nil {
		t.healthChecker = NewHealthChecker("")
	}
	return t
}

// Handler builds the routed handler with its middleware chain. It registers
// the proxy metrics and must be called at most once per registry.
func (t *HTTPTransport) Handler() http.Handler {
	t.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(t.registry)
	t.proxy.metrics = t.metrics

	// Middleware order (outermost first):
	// 1. MetricsMiddleware - must be outermost to capture full duration
	// 2. RequestID - extract/generate request ID and enrich logger
	// 3. DNSRebinding - Origin allowlist
	// 4. Proxy
	var proxyHandler http.Handler = t.proxy
	proxyHandler = DNSRebindingProtection(t.allowedOrigins)(proxyHandler)
	proxyHandler = RequestIDMiddleware(t.logger)(proxyHandler)

	mux := http.NewServeMux()
	mux.Handle("/health", t.healthChecker.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{
		Registry: t.registry,
	}))
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.Handle("/", proxyHandler)

	return MetricsMiddleware(t.metrics)(mux)
}

// Addr returns the bound address once Start is listening, else the
// configured address.
func (t *HTTPTransport) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or an error occurs.
func (t *HTTPTransport) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if t.certFile != "" && t.keyFile != "" {
		server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	t.mu.Lock()
	t.server = server
	t.listener = ln
	t.mu.Unlock()

	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", ln.Addr().String(), "upstream", t.proxy.Upstream())
			err = server.ServeTLS(ln, t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", ln.Addr().String(), "upstream", t.proxy.Upstream())
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *HTTPTransport) shutdown() error {
	t.mu.Lock()
	server := t.server
	t.mu.Unlock()
	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	return t.shutdown()
}

// Compile-time check that HTTPTransport implements Server interface.
var _ inbound.Server = (*HTTPTransport)(nil)
