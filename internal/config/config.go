// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the wizard service reads at startup.
type Config struct {
	Port     int    `env:"WIZARD_PORT" envDefault:"8080"`
	LogLevel string `env:"WIZARD_LOG_LEVEL" envDefault:"info"`

	// Locale drives number grouping and the duration label language.
	Locale string `env:"WIZARD_LOCALE" envDefault:"en"`
	// MonthPolicy is "clamp" or "overflow"; see derive.MonthPolicy.
	MonthPolicy string `env:"WIZARD_MONTH_POLICY" envDefault:"clamp"`

	BackendURL     string        `env:"WIZARD_BACKEND_URL"`
	BackendTimeout time.Duration `env:"WIZARD_BACKEND_TIMEOUT" envDefault:"10s"`

	// DraftDSN selects the SQLite draft store; empty keeps drafts in memory.
	DraftDSN string `env:"WIZARD_DRAFT_DSN"`

	SessionMaxAge   time.Duration `env:"WIZARD_SESSION_MAX_AGE" envDefault:"8h"`
	SessionIdle     time.Duration `env:"WIZARD_SESSION_IDLE" envDefault:"30m"`
	SessionSweep    time.Duration `env:"WIZARD_SESSION_SWEEP" envDefault:"1m"`
	EventBufferSize int           `env:"WIZARD_EVENT_BUFFER" envDefault:"256"`

	NATSURL      string `env:"WIZARD_NATS_URL"`
	OTelEndpoint string `env:"WIZARD_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config from the environment and checks its values.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.MonthPolicy {
	case "clamp", "overflow":
	default:
		return fmt.Errorf("invalid month policy %q (want clamp or overflow)", c.MonthPolicy)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.BackendTimeout)
	}
	if c.SessionSweep <= 0 {
		return fmt.Errorf("session sweep interval must be positive, got %s", c.SessionSweep)
	}
	return nil
}
