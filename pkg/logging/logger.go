// Package logging configures the zerolog logger shared by the stub components.
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
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
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

// ConfigFor builds a logger configuration from textual settings, writing to stderr.
func ConfigFor(level string, pretty bool) Config {
	cfg := DefaultConfig()
	cfg.Level = LogLevel(level)
	cfg.Pretty = pretty
	return cfg
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Pagination windows served (board_id, start_at, max_results, returned)
//   - Internal state changes
//
// Info: Normal operation events
//   - One line per served request
//   - Profile loading progress and issue counts
//   - Login attempts, issued and closed sessions
//   - Server startup/shutdown and the usage URL
//
// Warn: Warning conditions that don't prevent operation
//   - A board id defined by more than one profile
//   - Session store not ready
//   - Client retry attempts
//
// Error: Error conditions requiring attention
//   - A profile that could not be loaded (the profile is skipped)
//   - Session store failures
//   - Configuration errors
//
// Context Fields:
//   - component: emitting component (loader, registry, server, session, client)
//   - profile: fixture profile name
//   - board_id: board identifier
//   - method, path, query, status, duration: request access fields
//   - session_id: issued or closed session
//   - error_class: client error classification (client, server, network)
