package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// hopByHopHeaders lists headers that must be removed when forwarding requests.
// They are meaningful only for a single connection (RFC 7230 Section 6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// RewriteRule maps a public path prefix onto the internal origin.
type RewriteRule struct {
	// Name labels metrics and logs.
	Name string
	// Prefix is matched on segment boundaries: "/api" matches "/api" and
	// "/api/x" but not "/apix" or "/api-proxy/x".
	Prefix string
	// StripPrefix removes Prefix before forwarding.
	StripPrefix bool
}

// DefaultRewriteRules are the rules the browser code relies on.
func DefaultRewriteRules() []RewriteRule {
	return []RewriteRule{
		{Name: "api-proxy", Prefix: "/api-proxy", StripPrefix: true},
		{Name: "api", Prefix: "/api"},
		{Name: "auth", Prefix: "/auth"},
	}
}

// matches reports whether path falls under the rule's prefix.
func (r RewriteRule) matches(path string) bool {
	prefix := strings.TrimRight(r.Prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Rewrite returns the path to request on the internal origin.
func (r RewriteRule) Rewrite(path string) string {
	if !r.StripPrefix {
		return path
	}
	out := strings.TrimPrefix(path, strings.TrimRight(r.Prefix, "/"))
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithProxyLogger sets the logger used when no request logger is in context.
func WithProxyLogger(logger *slog.Logger) ProxyOption {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProxyTimeout sets the upstream request timeout. Zero means none.
func WithProxyTimeout(d time.Duration) ProxyOption {
	return func(p *Proxy) {
		p.client.Timeout = d
	}
}

// WithProxyMetrics sets the metrics the proxy records into.
func WithProxyMetrics(m *Metrics) ProxyOption {
	return func(p *Proxy) {
		p.metrics = m
	}
}

// Proxy forwards matching requests to the internal origin.
type Proxy struct {
	upstream string
	rules    []RewriteRule
	client   *http.Client
	metrics  *Metrics
	logger   *slog.Logger
}

// NewProxy creates a proxy forwarding to upstream (an origin such as
// "http://backend:8000") according to rules.
func NewProxy(upstream string, rules []RewriteRule, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		upstream: strings.TrimRight(upstream, "/"),
		rules:    rules,
		client: &http.Client{
			// Do not follow redirects -- pass them through to the caller.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upstream returns the internal origin requests are forwarded to.
func (p *Proxy) Upstream() string {
	return p.upstream
}

// Match finds the most specific (longest Prefix) rule for path.
// Returns nil if no rule matches.
func (p *Proxy) Match(path string) *RewriteRule {
	var best *RewriteRule
	bestLen := -1

	for i := range p.rules {
		r := &p.rules[i]
		if r.matches(path) && len(r.Prefix) > bestLen {
			best = r
			bestLen = len(r.Prefix)
		}
	}
	return best
}

// ServeHTTP forwards the request if a rule matches, otherwise answers 404.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rule := p.Match(r.URL.Path)
	if rule == nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	p.Forward(w, r, rule)
}

// Forward sends the request upstream and copies the response back.
// On transport failure it answers 502 with a JSON error.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, rule *RewriteRule) {
	logger := LoggerFromContext(r.Context())
	if r.Context().Value(LoggerKey) == nil {
		logger = p.logger
	}

	upstreamURL := p.upstream + rule.Rewrite(r.URL.Path)
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, r.Body)
	if err != nil {
		logger.Error("failed to create upstream request", "error", err, "url", upstreamURL)
		writeJSONError(w, http.StatusBadGateway, "failed to create upstream request")
		return
	}
	outReq.ContentLength = r.ContentLength

	for key, values := range r.Header {
		for _, v := range values {
			outReq.Header.Add(key, v)
		}
	}
	for _, h := range hopByHopHeaders {
		outReq.Header.Del(h)
	}

	clientIP, _, _ := net.SplitHostPort(r.RemoteAddr)
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}
	if prior := outReq.Header.Get("X-Forwarded-For"); prior != "" {
		outReq.Header.Set("X-Forwarded-For", prior+", "+clientIP)
	} else {
		outReq.Header.Set("X-Forwarded-For", clientIP)
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	outReq.Header.Set("X-Forwarded-Proto", scheme)
	outReq.Header.Set("X-Forwarded-Host", r.Host)

	resp, err := p.client.Do(outReq)
	if err != nil {
		if p.metrics != nil {
			p.metrics.UpstreamErrorsTotal.WithLabelValues(rule.Name).Inc()
		}
		logger.Error("backend unreachable", "error", err, "rule", rule.Name, "url", upstreamURL)
		writeJSONError(w, http.StatusBadGateway, "backend unreachable")
		return
	}
	defer resp.Body.Close()

	if p.metrics != nil {
		p.metrics.ForwardedTotal.WithLabelValues(rule.Name).Inc()
	}
	logger.Debug("forwarded", "rule", rule.Name, "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode)

	for _, h := range hopByHopHeaders {
		resp.Header.Del(h)
	}
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Debug("error copying response body", "error", err)
	}
}

// writeJSONError writes an error in the backend's {"detail": ...} shape so
// browser code handles proxy errors like backend errors.
func writeJSONError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
