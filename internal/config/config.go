// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Default short-link domain used when a request names none
	DefaultDomain string `env:"DEFAULT_DOMAIN" envDefault:"localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Cache behavior
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheOpTimeout time.Duration `env:"CACHE_OP_TIMEOUT" envDefault:"250ms"`

	// Expiry sweep
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	SweepLockTTL  time.Duration `env:"SWEEP_LOCK_TTL" envDefault:"60s"`

	// Click stat pipeline
	StatQueueSize int `env:"STAT_QUEUE_SIZE" envDefault:"4096"`
	StatWorkers   int `env:"STAT_WORKERS" envDefault:"4"`

	// Optional static geo table as comma-separated "CIDR=CC" pairs,
	// e.g. "10.0.0.0/8=DE,192.168.0.0/16=NL". Empty disables IP-based
	// country resolution; the CDN country header still applies.
	GeoTable string `env:"GEO_TABLE" envDefault:""`

	// Run goose migrations on startup
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"false"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is applied first if present.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	// Best-effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
