// Package logging configures structured logging for the gateway using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit (debug, info, warn, error).
	Level string

	// Format is "json" for structured output or "console" for local
	// development.
	Format string

	// Output is the destination writer (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns the production logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a child of the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: cache hits and misses, visible-SKU lookups, request flow details.
//
// Info: completed upstream fetches, token refreshes, cache sweeps with
// evictions, server startup and shutdown.
//
// Warn: primary fetch failures that trigger the fallback, retry attempts,
// token invalidation after a 401, breaker state changes.
//
// Error: fetches that exhausted retries and fallback, login failures,
// configuration errors.
//
// Context Fields:
//   - client_id: Rodin client code or email
//   - kind: client identifier kind (code, email)
//   - phase: fetch phase (fetch, fallback)
//   - total_products: product count of a price list
//   - fetch_duration_ms: upstream fetch duration
//   - error_class: upstream error classification (client, server, rate_limit, network)
//   - status_code: upstream HTTP status
