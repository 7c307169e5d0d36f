package endpoint

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// endpointEnv holds the raw environment values. NEXT_PUBLIC_API_URL is kept
// for deployments that still export the frontend's historical name.
type endpointEnv struct {
	InternalURL     string `env:"INTERNAL_API_URL"`
	PublicURL       string `env:"PUBLIC_API_URL"`
	LegacyPublicURL string `env:"NEXT_PUBLIC_API_URL"`
}

// FromEnv reads the endpoint configuration from the process environment.
func FromEnv() (Config, error) {
	var raw endpointEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse endpoint env: %w", err)
	}

	cfg := Config{
		InternalURL: raw.InternalURL,
		PublicURL:   raw.PublicURL,
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = raw.LegacyPublicURL
	}
	return cfg, nil
}

// Merge returns c with empty fields filled from fallback.
func (c Config) Merge(fallback Config) Config {
	if c.InternalURL == "" {
		c.InternalURL = fallback.InternalURL
	}
	if c.PublicURL == "" {
		c.PublicURL = fallback.PublicURL
	}
	return c
}
