// Package config loads gateway configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the gateway.
type Config struct {
	// Port is the HTTP listen port of the gateway itself.
	Port int `env:"PORT" envDefault:"8080"`

	// LogLevel and LogFormat feed the zerolog setup. Format "console" is
	// meant for local development; production runs structured JSON.
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Redis backs the Rodin auth-token store.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Rodin upstream connection and credentials.
	RodinBaseURL  string `env:"RODIN_BASE_URL"`
	RodinUsername string `env:"RODIN_USERNAME"`
	RodinPassword string `env:"RODIN_PASSWORD"`

	// Price cache sizing and lifecycle.
	CacheMaxEntries    int           `env:"PRICE_CACHE_MAX_ENTRIES" envDefault:"200"`
	CacheTTL           time.Duration `env:"PRICE_CACHE_TTL" envDefault:"6h"`
	CacheSweepInterval time.Duration `env:"PRICE_CACHE_SWEEP_INTERVAL" envDefault:"1h"`
	CacheEvictFraction float64       `env:"PRICE_CACHE_EVICT_FRACTION" envDefault:"0.2"`

	// Orchestrator fetch strategy.
	EmailRetries    int           `env:"FETCH_EMAIL_RETRIES" envDefault:"2"`
	CodeRetries     int           `env:"FETCH_CODE_RETRIES" envDefault:"3"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FallbackTimeout time.Duration `env:"FETCH_FALLBACK_TIMEOUT" envDefault:"10s"`
	FallbackLimit   int           `env:"FETCH_FALLBACK_LIMIT" envDefault:"50"`
	MaxVisibleSKUs  int           `env:"MAX_VISIBLE_SKUS" envDefault:"100"`
}

// Load parses the environment and validates required settings.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no sensible default.
func (c *Config) Validate() error {
	if c.RodinBaseURL == "" {
		return fmt.Errorf("RODIN_BASE_URL is required")
	}
	if c.RodinUsername == "" || c.RodinPassword == "" {
		return fmt.Errorf("RODIN_USERNAME and RODIN_PASSWORD are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if c.CacheEvictFraction <= 0 || c.CacheEvictFraction > 1 {
		return fmt.Errorf("PRICE_CACHE_EVICT_FRACTION %v must be in (0, 1]", c.CacheEvictFraction)
	}
	return nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
