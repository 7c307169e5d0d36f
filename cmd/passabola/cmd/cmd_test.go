package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	"github.com/passa-a-bola/web/internal/config"
	"github.com/passa-a-bola/web/internal/domain/session"
)

// fakeBackend answers the endpoints the CLI talks to.
type fakeBackend struct {
	mu         sync.Mutex
	authHeader map[string]string
}

func (b *fakeBackend) record(path, auth string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authHeader[path] = auth
}

func (b *fakeBackend) auth(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authHeader[path]
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{authHeader: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "ana@example.com" || r.FormValue("password") != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-ana",
			"token_type":   "bearer",
			"role":         "jogadora_profissional",
		})
	})
	mux.HandleFunc("GET /api/profiles/me", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r.URL.Path, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"full_name":"Ana Souza","position":"atacante"}`))
	})
	mux.HandleFunc("GET /api/news", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r.URL.Path, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":1,"title":"` + r.URL.Query().Get("tag") + `"}]`))
	})
	mux.HandleFunc("POST /api/feed/posts/{id}/like", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r.URL.Path, r.Header.Get("Authorization"))
		if r.PathValue("id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Post not found"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

// setupCLIEnv isolates config discovery and points the CLI at backendURL
// with file storage under a temp dir.
func setupCLIEnv(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("INTERNAL_API_URL", backendURL)
	t.Setenv("PUBLIC_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")
	t.Setenv("PASSABOLA_STORAGE_DRIVER", "file")
	path := filepath.Join(dir, "session.json")
	t.Setenv("PASSABOLA_STORAGE_PATH", path)
	t.Setenv("PASSABOLA_SERVER_LOG_LEVEL", "error")
	return path
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Flag variables are package globals; reset them between runs.
	cfgFile, devMode = "", false
	loginEmail, loginPassword = "", ""
	statusOutput, statusRefresh = "text", false
	resolveSide = ""
	fetchQuery = nil
	likeLiked, likeCount = false, 0
	serveAddr = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCommands_Registered(t *testing.T) {
	want := []string{"login", "logout", "status", "resolve", "fetch", "like", "serve", "version"}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s command not registered with rootCmd", name)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseQuery(t *testing.T) {
	q, err := parseQuery([]string{"tag=copa", "page=2", "tag=final"})
	if err != nil {
		t.Fatalf("parseQuery() error = %v", err)
	}
	if got := q["tag"]; len(got) != 2 || got[1] != "final" {
		t.Errorf("tag = %v", got)
	}
	if q.Get("page") != "2" {
		t.Errorf("page = %q", q.Get("page"))
	}

	if q, err := parseQuery(nil); err != nil || q != nil {
		t.Errorf("parseQuery(nil) = %v, %v", q, err)
	}
	if _, err := parseQuery([]string{"novalue"}); err == nil {
		t.Error("parseQuery(novalue) expected error")
	}
}

func TestCLI_SessionLifecycle(t *testing.T) {
	fb, srv := newFakeBackend(t)
	setupCLIEnv(t, srv.URL)

	out, err := runCLI(t, "login", "--email", " ana@example.com ", "--password", "secret")
	if err != nil {
		t.Fatalf("login error = %v", err)
	}
	for _, want := range []string{"Logged in as professional_player", "Welcome, Ana Souza.", "Continue at /feed"} {
		if !strings.Contains(out, want) {
			t.Errorf("login output missing %q:\n%s", want, out)
		}
	}
	if got := fb.auth("/api/profiles/me"); got != "Bearer tok-ana" {
		t.Errorf("profile Authorization = %q", got)
	}

	out, err = runCLI(t, "status", "-o", "json")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("status json: %v\n%s", err, out)
	}
	if !view.LoggedIn || view.Role != "jogadora_profissional" || view.Name != "Ana Souza" {
		t.Errorf("status = %+v", view)
	}
	if view.Profile["position"] != "atacante" {
		t.Errorf("profile fields = %v", view.Profile)
	}
	if strings.Contains(out, "tok-ana") {
		t.Error("status output leaks the token")
	}

	out, err = runCLI(t, "status", "-o", "yaml")
	if err != nil {
		t.Fatalf("status yaml error = %v", err)
	}
	if !strings.Contains(out, "logged_in: true") || !strings.Contains(out, "role_name: professional_player") {
		t.Errorf("status yaml:\n%s", out)
	}

	out, err = runCLI(t, "fetch", "/api/news", "-q", "tag=copa")
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	if !strings.Contains(out, `"title": "copa"`) {
		t.Errorf("fetch output:\n%s", out)
	}
	if got := fb.auth("/api/news"); got != "Bearer tok-ana" {
		t.Errorf("fetch Authorization = %q", got)
	}

	out, err = runCLI(t, "like", "42", "--count", "3")
	if err != nil {
		t.Fatalf("like error = %v", err)
	}
	if !strings.Contains(out, "Liked post 42 (4 likes)") {
		t.Errorf("like output = %q", out)
	}

	if _, err := runCLI(t, "like", "404", "--liked", "--count", "5"); err == nil || !strings.Contains(err.Error(), "kept liked=true count=5") {
		t.Errorf("like 404 error = %v, want rollback message", err)
	}

	out, err = runCLI(t, "logout")
	if err != nil {
		t.Fatalf("logout error = %v", err)
	}
	if !strings.Contains(out, "Continue at /login") {
		t.Errorf("logout output = %q", out)
	}

	out, err = runCLI(t, "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.HasPrefix(out, "Not logged in (storage: file)") {
		t.Errorf("status after logout = %q", out)
	}
}

func TestCLI_LoginRejected(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupCLIEnv(t, srv.URL)

	_, err := runCLI(t, "login", "--email", "ana@example.com", "--password", "wrong")
	if err == nil || !strings.Contains(err.Error(), "Incorrect email or password") {
		t.Fatalf("login error = %v, want backend detail", err)
	}

	out, err := runCLI(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Not logged in") {
		t.Errorf("status after failed login = %q", out)
	}
}

func TestCLI_LoginMissingPassword(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupCLIEnv(t, srv.URL)
	t.Setenv("PASSABOLA_PASSWORD", "")

	_, err := runCLI(t, "login", "--email", "ana@example.com")
	if err == nil || !strings.Contains(err.Error(), "password is required") {
		t.Errorf("login error = %v", err)
	}
}

func TestCLI_LikeRequiresLogin(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupCLIEnv(t, srv.URL)

	if _, err := runCLI(t, "like", "42"); err == nil || !strings.Contains(err.Error(), "not authenticated") {
		t.Errorf("like error = %v", err)
	}
}

func TestCLI_Resolve(t *testing.T) {
	setupCLIEnv(t, "http://backend.internal:8000")

	out, err := runCLI(t, "resolve", "api/news")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	for _, want := range []string{
		"side: server",
		"base: http://backend.internal:8000",
		"url:  http://backend.internal:8000/api/news",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("resolve output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "resolve", "--side", "client", "/api/news")
	if err != nil {
		t.Fatalf("resolve --side client error = %v", err)
	}
	for _, want := range []string{
		"side: client",
		"base: \n",
		"path: /api/news",
		"url:  http://127.0.0.1:3000/api/news",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("client resolve output missing %q:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "resolve", "--side", "edge", "/api/news"); err == nil {
		t.Error("resolve --side edge expected error")
	}
}

func TestCLI_StatusBadOutput(t *testing.T) {
	setupCLIEnv(t, "http://backend.internal:8000")

	if _, err := runCLI(t, "status", "-o", "xml"); err == nil {
		t.Error("status -o xml expected error")
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "passabola "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestNewStatusView_Claims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "17",
		"role": "olheiro",
		"exp":  exp.Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}

	v := newStatusView(session.Authenticated(token, session.RoleScout), "sqlite", exp.Add(-time.Hour))
	if v.Token == nil || v.Token.Subject != "17" || v.Token.Expired {
		t.Fatalf("token view = %+v", v.Token)
	}
	if !v.Token.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", v.Token.ExpiresAt, exp)
	}

	later := newStatusView(session.Authenticated(token, session.RoleScout), "sqlite", exp.Add(time.Hour))
	if !later.Token.Expired {
		t.Error("expected expired token")
	}

	opaque := newStatusView(session.Authenticated("opaque", session.Role("coach")), "memory", time.Now())
	if opaque.Token != nil || opaque.KnownRole || opaque.RoleName != "coach" {
		t.Errorf("opaque view = %+v", opaque)
	}

	var buf bytes.Buffer
	if err := writeStatus(&buf, opaque, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Logged in as coach (unrecognized role)") || !strings.Contains(buf.String(), "Profile: none") {
		t.Errorf("text status:\n%s", buf.String())
	}
}

func TestDialCheck(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := dialCheck(srv.URL)(ctx); err != nil {
		t.Errorf("dialCheck(live) error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if err := dialCheck("http://" + addr)(ctx); err == nil {
		t.Error("dialCheck(closed) expected error")
	}
}

func TestOpenStorage_FileDriverLogsLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageFile, Path: path}}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	st, closeFn, err := openStorage(cfg, logger)
	if err != nil {
		t.Fatalf("openStorage() error = %v", err)
	}
	defer func() { _ = closeFn(context.Background()) }()

	if err := st.Set(context.Background(), session.KeyRole, "admin"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "path="+path) || !strings.Contains(out, "exists=false") {
		t.Errorf("debug log missing storage location:\n%s", out)
	}
}
