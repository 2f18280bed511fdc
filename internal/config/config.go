// Package config manages application configuration
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string `env:"CODEGPT_PORT" envDefault:"8080"`
	Environment string `env:"CODEGPT_ENV" envDefault:"development"`

	// Database
	DatabaseURL string `env:"CODEGPT_DATABASE_URL" envDefault:"codegpt.db"`

	// Security
	SecretKey string `env:"CODEGPT_SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`

	// Session settings
	SessionDuration time.Duration `env:"CODEGPT_SESSION_DURATION" envDefault:"24h"`
	// How long a submitted signup may wait for OTP verification
	PendingDuration time.Duration `env:"CODEGPT_PENDING_DURATION" envDefault:"15m"`

	// SMTP settings for OTP delivery
	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	// Gemini API
	GeminiAPIKey string `env:"GOOGLE_API_KEY"`
}

// Load parses configuration from environment variables with development defaults
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.IsProduction() && c.SecretKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("CODEGPT_SECRET_KEY must be set in production")
	}
	if c.SMTPUsername == "" || c.SMTPPassword == "" || c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_USERNAME, SMTP_PASSWORD and SMTP_FROM must be set")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY must be set")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
