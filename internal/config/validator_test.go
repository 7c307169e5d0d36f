package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a defaulted Config that passes validation.
func minimalValidConfig() *Config {
	cfg := &Config{Storage: StorageConfig{Driver: StorageMemory}}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_DefaultFileStorage(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_ZeroConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for zero config (no storage driver)")
	}
	if !strings.Contains(err.Error(), "Config.Storage.Driver is required") {
		t.Errorf("error = %q", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad storage driver",
			mutate:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: "must be one of: memory file sqlite",
		},
		{
			name:    "bad unauthorized policy",
			mutate:  func(c *Config) { c.Session.OnUnauthorized = "panic" },
			wantErr: "must be 'ignore' or 'logout'",
		},
		{
			name:    "bad side",
			mutate:  func(c *Config) { c.Endpoint.Side = "edge" },
			wantErr: "must be one of: server client",
		},
		{
			name:    "bad internal url",
			mutate:  func(c *Config) { c.Endpoint.InternalURL = "backend-8000" },
			wantErr: "must be a valid URL",
		},
		{
			name:    "bad http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "localhost" },
			wantErr: "must be a valid host:port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "trace" },
			wantErr: "must be one of",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Backend.Timeout = "soon" },
			wantErr: "must be a non-negative duration",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Backend.Timeout = "-1s" },
			wantErr: "must be a non-negative duration",
		},
		{
			name:    "relative login path",
			mutate:  func(c *Config) { c.Backend.LoginPath = "auth/login" },
			wantErr: `must start with "/"`,
		},
		{
			name:    "tls cert without key",
			mutate:  func(c *Config) { c.Server.TLSCertFile = "/etc/ssl/cert.pem" },
			wantErr: "is required when TLSCertFile is set",
		},
		{
			name:    "relative trace output",
			mutate:  func(c *Config) { c.Telemetry.TraceOutput = "file://traces.json" },
			wantErr: "must be 'stdout' or 'file://<absolute-path>'",
		},
		{
			name:    "bad allowed origin",
			mutate:  func(c *Config) { c.Server.AllowedOrigins = []string{"not a url"} },
			wantErr: "must be a valid URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := minimalValidConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_AcceptedValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sqlite driver", func(c *Config) { c.Storage.Driver = StorageSQLite; c.Storage.Path = "/tmp/s.db" }},
		{"logout policy uppercase", func(c *Config) { c.Session.OnUnauthorized = "LOGOUT" }},
		{"client side", func(c *Config) { c.Endpoint.Side = "client" }},
		{"timeout", func(c *Config) { c.Backend.Timeout = "10s" }},
		{"tls pair", func(c *Config) { c.Server.TLSCertFile = "/c.pem"; c.Server.TLSKeyFile = "/k.pem" }},
		{"file trace output", func(c *Config) { c.Telemetry.TraceOutput = "file:///var/log/passabola/traces.json" }},
		{"public url", func(c *Config) { c.Endpoint.PublicURL = "https://api.passabola.example" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_StoragePathRequired(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Storage.Driver = StorageFile
	cfg.Storage.Path = "  "

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "storage.path is required") {
		t.Errorf("Validate() error = %v, want storage.path message", err)
	}
}
