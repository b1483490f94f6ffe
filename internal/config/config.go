// Package config loads billsync configuration from the environment.
//
// Values come from the process environment, optionally seeded from a .env
// file in the working directory. Variables already set in the environment
// win over the file.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Data sources.
const (
	DataSourcePostgres = "postgres"
	DataSourceMemory   = "memory"
)

// Config is the process configuration.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	DataSource  string `envconfig:"DATA_SOURCE" default:"postgres" validate:"oneof=postgres memory"`
	DatabaseURL string `envconfig:"DATABASE_URL" validate:"required_if=DataSource postgres"`

	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	// StripeWebhookSecret is checked at startup only. The webhook handler
	// rereads the variable on every request so it can be rotated in place.
	StripeWebhookSecret string  `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeRateLimit     float64 `envconfig:"STRIPE_RATE_LIMIT" default:"20" validate:"gte=0"`

	KindeDomain   string `envconfig:"KINDE_DOMAIN"`
	KindeAudience string `envconfig:"KINDE_AUDIENCE"`

	// CORSAllowedOrigins lists the browser origins allowed to call the API.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*" validate:"min=1,dive,required"`

	// SeedUsers creates users in the memory store at startup, each entry
	// "email" or "email:role".
	SeedUsers []string `envconfig:"SEED_USERS" validate:"dive,required"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// WebhookSecretEnv names the variable holding the Stripe webhook signing secret.
const WebhookSecretEnv = "STRIPE_WEBHOOK_SECRET"

// Load reads .env (if present) and the environment, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads and validates configuration without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// UseMemory reports whether the in-memory store is selected.
func (c *Config) UseMemory() bool {
	return c.DataSource == DataSourceMemory
}

// AuthEnabled reports whether Kinde JWT verification is configured.
func (c *Config) AuthEnabled() bool {
	return c.KindeDomain != ""
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
