package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// echoBackend records the path and query it was asked for.
func echoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		w.Header().Set("X-Upstream-Query", r.URL.RawQuery)
		w.Header().Set("X-Upstream-Auth", r.Header.Get("Authorization"))
		w.Header().Set("X-Upstream-Forwarded-For", r.Header.Get("X-Forwarded-For"))
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRewriteRule_Matches(t *testing.T) {
	rules := DefaultRewriteRules()
	p := NewProxy("http://backend:8000", rules)

	tests := []struct {
		path string
		want string // rule name, "" for none
	}{
		{"/api-proxy/users/me", "api-proxy"},
		{"/api-proxy", "api-proxy"},
		{"/api/feed/posts", "api"},
		{"/api", "api"},
		{"/apix", ""},
		{"/auth/login", "auth"},
		{"/authors", ""},
		{"/feed", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := p.Match(tt.path)
			name := ""
			if got != nil {
				name = got.Name
			}
			if name != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.path, name, tt.want)
			}
		})
	}
}

func TestRewriteRule_Rewrite(t *testing.T) {
	tests := []struct {
		rule RewriteRule
		path string
		want string
	}{
		{RewriteRule{Prefix: "/api-proxy", StripPrefix: true}, "/api-proxy/x", "/x"},
		{RewriteRule{Prefix: "/api-proxy", StripPrefix: true}, "/api-proxy", "/"},
		{RewriteRule{Prefix: "/api-proxy/", StripPrefix: true}, "/api-proxy/a/b", "/a/b"},
		{RewriteRule{Prefix: "/api"}, "/api/x", "/api/x"},
		{RewriteRule{Prefix: "/auth"}, "/auth/x", "/auth/x"},
	}

	for _, tt := range tests {
		if got := tt.rule.Rewrite(tt.path); got != tt.want {
			t.Errorf("%+v.Rewrite(%q) = %q, want %q", tt.rule, tt.path, got, tt.want)
		}
	}
}

func TestProxy_ForwardsToInternalOrigin(t *testing.T) {
	backend := echoBackend(t)
	p := NewProxy(backend.URL+"/", DefaultRewriteRules(), WithProxyLogger(discardLogger()))

	tests := []struct {
		path     string
		wantPath string
	}{
		{"/api-proxy/x", "/x"},
		{"/api/x", "/api/x"},
		{"/auth/x", "/auth/x"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path+"?page=2", nil)
			req.Header.Set("Authorization", "Bearer t1")
			rec := httptest.NewRecorder()

			p.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("X-Upstream-Path"); got != tt.wantPath {
				t.Errorf("upstream path = %q, want %q", got, tt.wantPath)
			}
			if got := rec.Header().Get("X-Upstream-Query"); got != "page=2" {
				t.Errorf("upstream query = %q", got)
			}
			if got := rec.Header().Get("X-Upstream-Auth"); got != "Bearer t1" {
				t.Errorf("Authorization not forwarded: %q", got)
			}
			if rec.Header().Get("X-Upstream-Forwarded-For") == "" {
				t.Error("X-Forwarded-For not set")
			}
		})
	}
}

func TestProxy_ForwardsBody(t *testing.T) {
	backend := echoBackend(t)
	p := NewProxy(backend.URL, DefaultRewriteRules(), WithProxyLogger(discardLogger()))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=a%40b.co&password=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "username=a%40b.co&password=x" {
		t.Errorf("body = %q", got)
	}
}

func TestProxy_NoRule404(t *testing.T) {
	p := NewProxy("http://backend.invalid", DefaultRewriteRules(), WithProxyLogger(discardLogger()))

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"detail"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestProxy_Unreachable502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	m := NewMetrics(prometheus.NewRegistry())
	p := NewProxy(addr, DefaultRewriteRules(), WithProxyLogger(discardLogger()), WithProxyMetrics(m))

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if got := testutil.ToFloat64(m.UpstreamErrorsTotal.WithLabelValues("api")); got != 1 {
		t.Errorf("upstream_errors_total = %v, want 1", got)
	}
}

func TestProxy_PassesRedirectsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/elsewhere", http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	p := NewProxy(srv.URL, DefaultRewriteRules(), WithProxyLogger(discardLogger()))
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/elsewhere" {
		t.Errorf("Location = %q", loc)
	}
}
