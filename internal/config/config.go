// Package config provides configuration types for the passabola web core.
//
// Configuration comes from passabola.yaml and PASSABOLA_* environment
// variables. The backend origins additionally honor INTERNAL_API_URL and
// PUBLIC_API_URL (see endpoint.FromEnv) when the file leaves them empty.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/passa-a-bola/web/internal/domain/endpoint"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config is the top-level configuration.
type Config struct {
	// Server configures the same-origin proxy listener and logging.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Endpoint configures the backend origins per execution side.
	Endpoint EndpointConfig `yaml:"endpoint" mapstructure:"endpoint"`

	// Storage configures where the session is persisted.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Session configures session lifecycle policies.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Backend configures the HTTP client talking to the backend.
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`

	// Telemetry configures tracing.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// DevMode enables development features (debug logging, stdout tracing).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address the proxy listens on.
	// Defaults to "127.0.0.1:3000" (localhost only).
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info". DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// AllowedOrigins is the Origin allowlist of the proxy. Empty disables the check.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins" validate:"omitempty,dive,url"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `yaml:"tls_cert_file" mapstructure:"tls_cert_file" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `yaml:"tls_key_file" mapstructure:"tls_key_file" validate:"required_with=TLSCertFile"`
}

// EndpointConfig configures backend origins.
type EndpointConfig struct {
	// InternalURL is the backend origin reachable from the server side.
	// Empty falls back to INTERNAL_API_URL, then "http://backend:8000".
	InternalURL string `yaml:"internal_url" mapstructure:"internal_url" validate:"omitempty,url"`

	// PublicURL is the backend origin exposed to browsers. Optional.
	PublicURL string `yaml:"public_url" mapstructure:"public_url" validate:"omitempty,url"`

	// Side is the execution side CLI requests are built for.
	// "server" (default) talks to the internal origin directly; "client"
	// goes through the proxy at PageOrigin like browser code does.
	Side string `yaml:"side" mapstructure:"side" validate:"omitempty,oneof=server client"`

	// PageOrigin is the origin pages are served from (the proxy).
	// Client-side relative paths are joined onto it. Defaults to
	// "http://" + server.http_addr.
	PageOrigin string `yaml:"page_origin" mapstructure:"page_origin" validate:"omitempty,url"`
}

// StorageConfig configures session persistence.
type StorageConfig struct {
	// Driver is one of "memory", "file", "sqlite". Defaults to "file".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"required,storage_driver"`

	// Path is the session file or SQLite database.
	// Defaults to ~/.passabola/session.json (file) or session.db (sqlite).
	Path string `yaml:"path" mapstructure:"path"`
}

// SessionConfig configures session policies.
type SessionConfig struct {
	// OnUnauthorized is what happens when a protected call gets 401:
	// "ignore" (default) keeps the session, "logout" clears it.
	OnUnauthorized string `yaml:"on_unauthorized" mapstructure:"on_unauthorized" validate:"omitempty,unauthorized_policy"`
}

// BackendConfig configures the backend HTTP client.
type BackendConfig struct {
	// Timeout bounds each backend request (e.g., "10s"). Empty means none.
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`

	// LoginPath is the logical path of the credential exchange.
	// Defaults to "/auth/login".
	LoginPath string `yaml:"login_path" mapstructure:"login_path" validate:"omitempty,startswith=/"`

	// ProfilePath is the logical path of the current user's profile.
	// Defaults to "/api/profiles/me".
	ProfilePath string `yaml:"profile_path" mapstructure:"profile_path" validate:"omitempty,startswith=/"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	// Tracing enables OpenTelemetry spans for login and profile fetches.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`

	// TraceOutput is "stdout" or "file://<absolute-path>". Defaults to "stdout".
	TraceOutput string `yaml:"trace_output" mapstructure:"trace_output" validate:"omitempty,trace_output"`
}

// SetDevDefaults applies development defaults. Applied before validation.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
	c.Telemetry.Tracing = true
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Bind to localhost only; network access needs an explicit http_addr.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:3000"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Endpoint.Side == "" {
		c.Endpoint.Side = string(endpoint.SideServer)
	}
	if c.Endpoint.PageOrigin == "" {
		c.Endpoint.PageOrigin = "http://" + c.Server.HTTPAddr
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFile
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case StorageFile:
			c.Storage.Path = defaultStoragePath("session.json")
		case StorageSQLite:
			c.Storage.Path = defaultStoragePath("session.db")
		}
	}

	if c.Session.OnUnauthorized == "" {
		c.Session.OnUnauthorized = "ignore"
	}

	if c.Backend.LoginPath == "" {
		c.Backend.LoginPath = "/auth/login"
	}
	if c.Backend.ProfilePath == "" {
		c.Backend.ProfilePath = "/api/profiles/me"
	}

	if c.Telemetry.TraceOutput == "" {
		c.Telemetry.TraceOutput = "stdout"
	}
}

// defaultStoragePath returns name under ~/.passabola, or under the working
// directory if the home directory is unknown.
func defaultStoragePath(name string) string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".passabola", name)
	}
	return filepath.Join(".passabola", name)
}

// EndpointSide returns the configured execution side.
func (c *Config) EndpointSide() endpoint.Side {
	return endpoint.Side(c.Endpoint.Side)
}

// EndpointConfig returns the configured origins with empty values filled
// from fallback (typically endpoint.FromEnv()).
func (c *Config) EndpointConfig(fallback endpoint.Config) endpoint.Config {
	return endpoint.Config{
		InternalURL: c.Endpoint.InternalURL,
		PublicURL:   c.Endpoint.PublicURL,
	}.Merge(fallback)
}

// BackendTimeout returns the parsed backend timeout, 0 for none.
// Validate guarantees the value parses.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 0
	}
	return d
}
