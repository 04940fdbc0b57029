package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/farookquisar/restate-client/pkg/config"
)

// Config holds all configuration for the data-layer client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgreSQL (table gateway)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"restate"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"restate_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"restate_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Auth backend
	AuthBaseURL string `env:"AUTH_BASE_URL" envDefault:"http://localhost:9999"`
	AuthAnonKey string `env:"AUTH_ANON_KEY" envDefault:"local-anon-key"`

	// Query cache
	CacheStaleAfter     time.Duration `env:"CACHE_STALE_AFTER" envDefault:"5m"`
	CacheRetryCount     int           `env:"CACHE_RETRY_COUNT" envDefault:"1"`
	CacheRefetchOnFocus bool          `env:"CACHE_REFETCH_ON_FOCUS" envDefault:"false"`

	// Outbound HTTP
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.AuthBaseURL); err != nil {
		return nil, fmt.Errorf("invalid AUTH_BASE_URL %q: %w", cfg.AuthBaseURL, err)
	}
	if cfg.CacheStaleAfter <= 0 {
		return nil, fmt.Errorf("CACHE_STALE_AFTER must be positive, got %s", cfg.CacheStaleAfter)
	}
	if cfg.CacheRetryCount < 0 {
		return nil, fmt.Errorf("CACHE_RETRY_COUNT must not be negative, got %d", cfg.CacheRetryCount)
	}

	// Outside development, the anon key must be explicitly provisioned.
	if cfg.Environment != "development" && cfg.AuthAnonKey == "local-anon-key" {
		return nil, fmt.Errorf("AUTH_ANON_KEY must be explicitly set via environment variable in %q mode", cfg.Environment)
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
