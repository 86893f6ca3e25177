// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
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

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: detailed information for debugging
//   - Cache hits (url, memoized outcome)
//   - Retry scheduling (attempt, backoff)
//   - Suppressed 404 probes
//
// Info: normal operation events
//   - Dataset extraction start/finish with row counts
//   - Page accumulation progress
//   - Fan-out progress (processed/total)
//   - Sink load results
//
// Warn: conditions that degrade a run without stopping it
//   - Transient request failures being retried
//   - Retry exhaustion for one URL
//   - Individual fan-out lookups dropped from the result
//   - Cache backend errors (fetch continues uncached)
//
// Error: conditions requiring attention
//   - Malformed response bodies
//   - Sink write failures
//   - Configuration errors
//
// Context Fields:
//   - component: package emitting the event
//   - url: full request URL
//   - status: HTTP status code
//   - error_class: failure classification (client, server, network, decode)
//   - dataset: logical dataset name
//   - page: pagination cursor
//   - processed / total: fan-out progress counters
