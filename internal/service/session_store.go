package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/passa-a-bola/web/internal/domain/session"
	"github.com/passa-a-bola/web/internal/port/outbound"
)

// Redirect targets returned by Login and Logout.
const (
	RedirectAfterLogin  = "/feed"
	RedirectAfterLogout = "/login"
)

const tracerName = "github.com/passa-a-bola/web/internal/service"

// LoginResult is the outcome of a successful Login.
type LoginResult struct {
	Session    session.Session
	RedirectTo string
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithTracer sets the tracer used for login and profile spans.
func WithTracer(t trace.Tracer) StoreOption {
	return func(s *SessionStore) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the metrics the store records into.
func WithMetrics(m *Metrics) StoreOption {
	return func(s *SessionStore) {
		s.metrics = m
	}
}

// SessionStore owns the authentication state of the running application.
// It mirrors every change into persistent storage so that a restart can
// rehydrate the session with Initialize.
//
// All methods are safe for concurrent use. Concurrent logins are not
// serialized: the last response applied wins.
type SessionStore struct {
	storage session.Storage
	backend outbound.Backend
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics

	mu            sync.RWMutex
	state         session.Session
	profileDigest uint64
}

// NewSessionStore creates an anonymous store. Call Initialize to rehydrate
// the persisted session.
func NewSessionStore(storage session.Storage, backend outbound.Backend, logger *slog.Logger, opts ...StoreOption) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionStore{
		storage: storage,
		backend: backend,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		state:   session.Anonymous(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the persisted session. It makes no network call.
// A persisted profile that cannot be parsed is dropped with a warning; the
// login itself is kept. Storage failures leave the session anonymous.
func (s *SessionStore) Initialize(ctx context.Context) session.Session {
	loaded, profileErr, err := session.Load(ctx, s.storage)
	if err != nil {
		s.logger.Error("failed to read persisted session", "error", err)
		loaded = session.Anonymous()
	}
	if profileErr != nil {
		s.logger.Warn("ignoring unreadable persisted profile", "error", profileErr)
	}

	s.mu.Lock()
	s.state = loaded
	s.profileDigest = digest(loaded.Profile)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.metrics.setAuthenticated(snap.IsLoggedIn)
	if snap.IsLoggedIn {
		s.logger.Debug("session restored", "role", snap.Role, "has_profile", snap.Profile != nil)
	}
	return snap
}

// Login exchanges credentials for a token, persists the session and then
// tries to fetch the user's profile. A missing profile (404) or a failed
// profile fetch does not fail the login.
//
// On failure the session is left unchanged and the error is one of:
// ErrInvalidCredentials (wrapped), *AuthError, or an error matching
// outbound.ErrUnreachable. If the new session cannot be persisted, storage
// is cleared and the session becomes anonymous, whoever was logged in before.
func (s *SessionStore) Login(ctx context.Context, creds session.Credentials) (LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "session.Login")
	defer span.End()

	if err := creds.Validate(); err != nil {
		s.metrics.login("invalid")
		span.SetStatus(codes.Error, "invalid credentials")
		return LoginResult{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	tok, err := s.backend.Authenticate(ctx, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authenticate failed")
		return LoginResult{}, s.loginError(ctx, err)
	}
	if tok.Role == session.RoleGuest {
		s.metrics.login("error")
		span.SetStatus(codes.Error, "no role")
		return LoginResult{}, &AuthError{Detail: "login response has no role"}
	}
	span.SetAttributes(attribute.String("session.role", string(tok.Role)))

	// Storage and memory change together so a racing login cannot persist
	// one user while the process keeps serving another.
	s.mu.Lock()
	if err := s.persistLogin(ctx, tok); err != nil {
		s.state = session.Anonymous()
		s.profileDigest = 0
		s.mu.Unlock()

		s.metrics.login("error")
		s.metrics.setAuthenticated(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return LoginResult{}, err
	}
	s.state = session.Authenticated(tok.AccessToken, tok.Role)
	s.profileDigest = 0
	s.mu.Unlock()

	s.metrics.login("ok")
	s.metrics.setAuthenticated(true)
	s.logger.Info("login succeeded", "role", tok.Role)

	_ = s.syncProfile(ctx, tok.AccessToken)

	return LoginResult{
		Session:    s.Snapshot(),
		RedirectTo: RedirectAfterLogin,
	}, nil
}

// loginError maps a credential exchange failure to the error returned by Login.
func (s *SessionStore) loginError(ctx context.Context, err error) error {
	var apiErr *outbound.APIError
	switch {
	case ctx.Err() != nil:
		s.metrics.login("error")
		return err
	case errors.Is(err, outbound.ErrUnreachable):
		s.metrics.login("unreachable")
		s.logger.Warn("authentication service unreachable", "error", err)
		return fmt.Errorf("could not connect to the authentication service: %w", err)
	case errors.As(err, &apiErr):
		s.metrics.login("rejected")
		s.logger.Info("login rejected", "status", apiErr.StatusCode)
		return &AuthError{StatusCode: apiErr.StatusCode, Detail: apiErr.Detail, Cause: err}
	default:
		s.metrics.login("error")
		return &AuthError{Cause: err}
	}
}

// persistLogin writes token and role and drops any stale profile.
// On failure it attempts to remove whatever was written. Callers hold s.mu.
func (s *SessionStore) persistLogin(ctx context.Context, tok outbound.Token) error {
	err := s.storage.Set(ctx, session.KeyToken, tok.AccessToken)
	if err == nil {
		err = s.storage.Set(ctx, session.KeyRole, string(tok.Role))
	}
	if err == nil {
		err = s.storage.Delete(ctx, session.KeyProfile)
	}
	if err != nil {
		if cerr := session.Clear(ctx, s.storage); cerr != nil {
			s.logger.Error("failed to clean up partial session", "error", cerr)
		}
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Logout clears the persisted and in-memory session and returns the
// redirect target. It never fails: storage errors are logged.
func (s *SessionStore) Logout(ctx context.Context) string {
	s.mu.Lock()
	wasLoggedIn := s.clearLocked(ctx)
	s.mu.Unlock()

	s.finishLogout(wasLoggedIn)
	return RedirectAfterLogout
}

// logoutToken logs out only if the session still holds token. It reports
// whether the session was cleared.
func (s *SessionStore) logoutToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	if token == "" || s.state.Token != token {
		s.mu.Unlock()
		return false
	}
	wasLoggedIn := s.clearLocked(ctx)
	s.mu.Unlock()

	s.finishLogout(wasLoggedIn)
	return true
}

// clearLocked clears storage and memory. Callers hold s.mu.
func (s *SessionStore) clearLocked(ctx context.Context) (wasLoggedIn bool) {
	if err := session.Clear(ctx, s.storage); err != nil {
		s.logger.Error("failed to clear persisted session", "error", err)
	}
	wasLoggedIn = s.state.IsLoggedIn
	s.state = session.Anonymous()
	s.profileDigest = 0
	return wasLoggedIn
}

func (s *SessionStore) finishLogout(wasLoggedIn bool) {
	s.metrics.logout()
	s.metrics.setAuthenticated(false)
	if wasLoggedIn {
		s.logger.Info("logged out")
	}
}

// RefreshProfile re-fetches the profile of the logged-in user. A 404
// removes the stored profile. Other failures keep the current profile and
// are returned.
func (s *SessionStore) RefreshProfile(ctx context.Context) (*session.Profile, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	ctx, span := s.tracer.Start(ctx, "session.RefreshProfile")
	defer span.End()

	if err := s.syncProfile(ctx, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile fetch failed")
		return s.Profile(), err
	}
	return s.Profile(), nil
}

// syncProfile fetches the profile for token and applies the result if the
// session still belongs to that token. Only unexpected failures are returned.
func (s *SessionStore) syncProfile(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "session.FetchProfile")
	defer span.End()

	p, err := s.backend.FetchProfile(ctx, token)
	switch {
	case errors.Is(err, outbound.ErrNotFound):
		s.metrics.profileFetch("not_found")
		span.SetAttributes(attribute.Bool("profile.found", false))
		s.logger.Debug("no profile yet")
		return s.applyProfile(ctx, token, nil)
	case err != nil:
		s.metrics.profileFetch("error")
		span.RecordError(err)
		s.logger.Warn("failed to fetch profile", "error", err)
		return err
	}

	span.SetAttributes(attribute.Bool("profile.found", true))
	return s.applyProfile(ctx, token, p)
}

// applyProfile stores p (nil removes the profile). Writes are skipped when
// the payload is unchanged.
func (s *SessionStore) applyProfile(ctx context.Context, token string, p *session.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Token != token {
		s.logger.Debug("discarding profile for a replaced session")
		return nil
	}

	d := digest(p)
	if p != nil && s.state.Profile != nil && d == s.profileDigest {
		s.metrics.profileFetch("unchanged")
		return nil
	}

	var err error
	if p == nil {
		err = s.storage.Delete(ctx, session.KeyProfile)
	} else {
		s.metrics.profileFetch("ok")
		err = s.storage.Set(ctx, session.KeyProfile, string(p.Raw()))
	}
	if err != nil {
		s.logger.Error("failed to persist profile", "error", err)
		return fmt.Errorf("failed to persist profile: %w", err)
	}

	s.state = s.state.WithProfile(p)
	s.profileDigest = d
	return nil
}

// digest returns the xxhash of the profile payload, 0 for no profile.
func digest(p *session.Profile) uint64 {
	if p == nil {
		return 0
	}
	return xxhash.Sum64(p.Raw())
}

// Snapshot returns a copy of the current session.
func (s *SessionStore) Snapshot() session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// IsLoggedIn reports whether a token is present.
func (s *SessionStore) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoggedIn
}

// Role returns the current role, RoleGuest when anonymous.
func (s *SessionStore) Role() session.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Role
}

// Profile returns a copy of the current profile, or nil.
func (s *SessionStore) Profile() *session.Profile {
	return s.Snapshot().Profile
}

// Token returns the bearer token, "" when anonymous.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}
