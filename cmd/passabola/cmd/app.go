package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/passa-a-bola/web/internal/adapter/outbound/backend"
	"github.com/passa-a-bola/web/internal/adapter/outbound/memory"
	"github.com/passa-a-bola/web/internal/adapter/outbound/sqlite"
	"github.com/passa-a-bola/web/internal/adapter/outbound/state"
	"github.com/passa-a-bola/web/internal/config"
	"github.com/passa-a-bola/web/internal/domain/endpoint"
	"github.com/passa-a-bola/web/internal/domain/session"
	"github.com/passa-a-bola/web/internal/service"
	"github.com/passa-a-bola/web/internal/telemetry"
)

// app holds the components one CLI invocation works with. The session
// store is constructed here and threaded into every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	storage  session.Storage
	resolver endpoint.Resolver
	backend  *backend.Client
	store    *service.SessionStore
	api      *service.APIClient
	registry *prometheus.Registry

	closers []func(context.Context) error
}

// loadConfig loads the configuration, applies the --dev flag and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the text logger. DevMode always forces debug.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolverFor builds the resolver for side. Config values win over
// INTERNAL_API_URL / PUBLIC_API_URL.
func resolverFor(cfg *config.Config, side endpoint.Side) (endpoint.Resolver, error) {
	fromEnv, err := endpoint.FromEnv()
	if err != nil {
		return endpoint.Resolver{}, err
	}
	return endpoint.NewResolver(cfg.EndpointConfig(fromEnv), side), nil
}

// openStorage opens the configured session storage driver.
func openStorage(cfg *config.Config, logger *slog.Logger) (session.Storage, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Debug("memory storage: the session ends with this process")
		return memory.NewSessionStorage(), noop, nil
	case config.StorageFile:
		fs := state.NewFileStorage(cfg.Storage.Path, logger)
		logger.Debug("file storage", "path", fs.Path(), "exists", fs.Exists())
		return fs, noop, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
			return nil, noop, fmt.Errorf("create storage directory: %w", err)
		}
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return db, func(context.Context) error { return db.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newApp wires the session core for one invocation. Logs go to stderr so
// command output stays machine readable.
func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(stderr, cfg)
	if file := config.ConfigFileUsed(); file != "" {
		logger.Debug("loaded config", "file", file)
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	shutdownTracing, err := telemetry.Setup(telemetry.Config{
		Enabled: cfg.Telemetry.Tracing,
		Output:  cfg.Telemetry.TraceOutput,
		Version: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	storage, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	a.storage = storage
	a.closers = append(a.closers, closeStorage)

	a.resolver, err = resolverFor(cfg, cfg.EndpointSide())
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	a.backend = backend.NewClient(a.resolver,
		backend.WithPageOrigin(cfg.Endpoint.PageOrigin),
		backend.WithLoginPath(cfg.Backend.LoginPath),
		backend.WithProfilePath(cfg.Backend.ProfilePath),
		backend.WithTimeout(cfg.BackendTimeout()),
		backend.WithLogger(logger),
	)

	a.store = service.NewSessionStore(storage, a.backend, logger,
		service.WithMetrics(service.NewMetrics(a.registry)),
	)

	policy, err := service.ParseUnauthorizedPolicy(cfg.Session.OnUnauthorized)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.api = service.NewAPIClient(a.store, a.backend, policy, logger)

	a.store.Initialize(ctx)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp runs fn with a freshly wired app and closes it afterwards.
func withApp(ctx context.Context, stderr io.Writer, fn func(*app) error) (err error) {
	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
