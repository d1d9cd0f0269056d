// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config reads the runtime settings of the accounts API from the
environment with 'caarlos0/env'. A local '.env' file, when present, is loaded
first with 'joho/godotenv'; variables already set in the process win.

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

The returned [Config] is treated as read-only and handed to constructors;
nothing in this package keeps global state.
*/
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Token Lifetime

// NeverExpires is the literal accepted by [TokenLifetime] for non-expiring tokens.
const NeverExpires = "never"

// TokenLifetime is a duration that also accepts the literal "never".
// The zero value means the token never expires.
type TokenLifetime time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (lifetime *TokenLifetime) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if strings.EqualFold(raw, NeverExpires) {
		*lifetime = 0
		return nil
	}

	duration, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("token lifetime must be a duration or %q: %w", NeverExpires, err)
	}
	if duration <= 0 {
		return fmt.Errorf("token lifetime must be positive or %q, got %s", NeverExpires, raw)
	}

	*lifetime = TokenLifetime(duration)
	return nil
}

// Duration returns the lifetime as a [time.Duration] (zero for never).
func (lifetime TokenLifetime) Duration() time.Duration {
	return time.Duration(lifetime)
}

// Never reports whether tokens with this lifetime never expire.
func (lifetime TokenLifetime) Never() bool {
	return lifetime == 0
}

// String renders the lifetime the way it is configured.
func (lifetime TokenLifetime) String() string {
	if lifetime.Never() {
		return NeverExpires
	}
	return lifetime.Duration().String()
}

// # Configuration Schema

// Config holds all runtime configuration for the accounts API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL      string        `env:"DATABASE_URL,required"`
	DatabaseMaxConns int32         `env:"DATABASE_MAX_CONNS"      envDefault:"20"`
	DatabaseMinConns int32         `env:"DATABASE_MIN_CONNS"      envDefault:"2"`
	StatementTimeout time.Duration `env:"DATABASE_STATEMENT_TIMEOUT" envDefault:"30s"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis), used for the single-use reset-token ledger
	RedisURL      string `env:"REDIS_URL,required"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"5"`

	// Token signing. Access and reset keys are both derived from TokenSecret.
	TokenSecret    string        `env:"TOKEN_SECRET,required"`
	TokenIssuer    string        `env:"TOKEN_ISSUER"     envDefault:"accounts"`
	AccessTokenTTL TokenLifetime `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL"  envDefault:"1h"`

	// Credentials
	BcryptCost        int `env:"BCRYPT_COST"         envDefault:"10"`
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`

	// Password reset delivery
	FrontendURL       string `env:"FRONTEND_URL"        envDefault:"http://localhost:3000"`
	ExposeResetTokens bool   `env:"EXPOSE_RESET_TOKENS" envDefault:"false"`

	// Outbound mail (SMTP). An empty host logs messages instead of sending them.
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	MailFrom     string        `env:"MAIL_FROM"     envDefault:"noreply@example.com"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT"  envDefault:"10s"`

	// Cross-Origin Resource Sharing (comma separated origins, production only)
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var problems []error

	if len(c.TokenSecret) < 32 {
		problems = append(problems, errors.New("TOKEN_SECRET must be at least 32 bytes"))
	}
	if c.ResetTokenTTL <= 0 {
		problems = append(problems, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.PasswordMinLength < 1 || c.PasswordMinLength > 72 {
		problems = append(problems, errors.New("PASSWORD_MIN_LENGTH must be between 1 and 72"))
	}
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		problems = append(problems, fmt.Errorf("FRONTEND_URL is not a valid URL: %w", err))
	}
	if c.DatabaseMaxConns < 1 || c.DatabaseMinConns < 0 {
		problems = append(problems, errors.New("DATABASE_MAX_CONNS must be positive and DATABASE_MIN_CONNS not negative"))
	}
	if c.ExposeResetTokens && c.IsProduction() {
		problems = append(problems, errors.New("EXPOSE_RESET_TOKENS must not be enabled in production"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(problems...))
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the configured CORS origins.
func (c *Config) AllowedOrigins() []string {
	return c.CORSOrigins
}

// Port returns the TCP port the HTTP server listens on.
func (c *Config) Port() string {
	return c.ServerPort
}
