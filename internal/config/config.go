// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	App      AppConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return ":" + s.Port }

// DatabaseConfig holds database connection settings. Driver is "postgres"
// or "sqlite"; with sqlite, DBName is the file path (or ":memory:").
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DSNRaw   string `envconfig:"DATABASE_DSN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"invoices"`
	Password string `envconfig:"DB_PASSWORD" default:"invoices123"`
	DBName   string `envconfig:"DB_NAME" default:"invoices"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// DSN returns the PostgreSQL connection string in key=value format.
// DATABASE_DSN, when set, wins over the individual settings.
func (d DatabaseConfig) DSN() string {
	if d.DSNRaw != "" {
		return d.DSNRaw
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds the revenue cache settings. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REVENUE_CACHE_TTL" default:"5m"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// AppConfig holds application-level settings.
type AppConfig struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	Dev        bool   `envconfig:"DEV" default:"true"`
	Migrations bool   `envconfig:"MIGRATIONS" default:"false"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"text"`
	Currency   string `envconfig:"CURRENCY" default:"EUR"`
}

// IsProduction returns true when the application runs in production.
func (a AppConfig) IsProduction() bool { return a.Env == "production" }

// AuthConfig holds the workspace token signing secret. A non-empty
// Workspaces list restricts the API to those workspace ids.
type AuthConfig struct {
	Secret     string `envconfig:"AUTH_SECRET"`
	Workspaces []uint `envconfig:"AUTH_WORKSPACES"`
}

// Allows reports whether tokens of workspaceID are accepted.
func (a AuthConfig) Allows(workspaceID uint) bool {
	return len(a.Workspaces) == 0 || slices.Contains(a.Workspaces, workspaceID)
}

// devSecret is only accepted outside production.
const devSecret = "dev-secret-change-me"

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Auth.Secret == "" {
		if cfg.App.IsProduction() {
			return nil, errors.New("config: AUTH_SECRET must be provided in production")
		}
		cfg.Auth.Secret = devSecret
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return &cfg, nil
}
