// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Format represents the log output format.
type Format string

const (
	// FormatJSON outputs logs in JSON format for machine parsing.
	FormatJSON Format = "json"
	// FormatText outputs logs in human-readable text format.
	FormatText Format = "text"
)

// Custom log levels extending slog's standard levels.
const (
	// LevelTrace is more verbose than Debug, used for request and response
	// bodies.
	LevelTrace = slog.Level(-8)
)

// Standard field keys for structured logging.
// These constants ensure consistent field naming across the codebase.
const (
	// OperationKey is the field key for operation names.
	OperationKey = "operation"
	// RequestIDKey is the field key for invocation request identifiers.
	RequestIDKey = "request_id"
	// ParentIDKey is the field key for the correlation ID of the request
	// that triggered an invocation.
	ParentIDKey = "parent_correlation_id"
	// PathKey is the field key for endpoint paths.
	PathKey = "path"
	// StatusKey is the field key for operation status.
	StatusKey = "status"
	// DurationKey is the field key for duration in milliseconds.
	DurationKey = "duration_ms"
	// EventKey is the field key for event types.
	EventKey = "event"
)

// Rotation defaults for file output.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 5
)

// Config holds the logging configuration.
type Config struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Default: json
	Format Format `yaml:"format"`

	// Output is the writer for log output. Ignored when File is set.
	// Default: os.Stderr
	Output io.Writer `yaml:"-"`

	// AddSource adds source file and line information to logs.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// File, when set, sends logs to a size-rotated file instead of Output.
	File string `yaml:"file"`

	// MaxSizeMB is the size at which File is rotated.
	// Default: 10
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	// Default: 5
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays removes rotated files older than this. 0 keeps them.
	MaxAgeDays int `yaml:"max_age_days"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     FormatJSON,
		Output:     os.Stderr,
		AddSource:  false,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
	}
}

// FromEnv creates a Config from environment variables.
// Supported environment variables:
//   - CREWCTL_DEBUG: true/1 to enable debug level and source logging (takes precedence)
//   - CREWCTL_LOG_LEVEL: trace, debug, info, warn, error (takes precedence over LOG_LEVEL)
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, text (default: json)
//   - LOG_SOURCE: 1 to enable source file/line (default: 0)
//   - CREWCTL_LOG_FILE: path of a rotated log file
func FromEnv() *Config {
	cfg := DefaultConfig()
	ApplyEnv(cfg)
	return cfg
}

// ApplyEnv overlays the environment variables documented on FromEnv onto cfg.
func ApplyEnv(cfg *Config) {
	debug := os.Getenv("CREWCTL_DEBUG")
	if debug == "true" || debug == "1" {
		cfg.Level = "debug"
		cfg.AddSource = true
	}

	// CREWCTL_LOG_LEVEL takes precedence over LOG_LEVEL (but not CREWCTL_DEBUG)
	if debug == "" {
		if level := os.Getenv("CREWCTL_LOG_LEVEL"); level != "" {
			cfg.Level = strings.ToLower(level)
		} else if level := os.Getenv("LOG_LEVEL"); level != "" {
			cfg.Level = strings.ToLower(level)
		}
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	}

	if os.Getenv("LOG_SOURCE") == "1" {
		cfg.AddSource = true
	}

	if file := os.Getenv("CREWCTL_LOG_FILE"); file != "" {
		cfg.File = file
	}
}

// New creates a new structured logger from the given configuration.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	out := writer(cfg)

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	case FormatJSON:
		fallthrough
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}

// writer selects the log destination. File output rotates through lumberjack.
func writer(cfg *Config) io.Writer {
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = DefaultMaxSizeMB
		}
		backups := cfg.MaxBackups
		if backups <= 0 {
			backups = DefaultMaxBackups
		}
		return &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: backups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}
	if cfg.Output == nil {
		return os.Stderr
	}
	return cfg.Output
}

// Discard returns a logger that drops everything. Used as the default for
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is one parseLevel understands.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// WithCorrelationID returns a new logger with a correlation ID field.
func WithCorrelationID(logger *slog.Logger, correlationID string) *slog.Logger {
	return logger.With("correlation_id", correlationID)
}

// WithRequestID returns a new logger with a request ID field.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(RequestIDKey, requestID)
}

// WithComponent returns a new logger with a component name field.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithOperation returns a new logger carrying the operation name and the
// request ID of one invocation.
func WithOperation(logger *slog.Logger, operation, requestID string) *slog.Logger {
	return logger.With(
		slog.String(OperationKey, operation),
		slog.String(RequestIDKey, requestID),
	)
}

// String creates a string attribute.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int creates an int attribute.
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Error creates an error attribute.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value int64) slog.Attr {
	return slog.Int64(key+"_ms", value)
}

// SanitizeAPIKey masks an API key, showing only the last 4 characters.
// Returns "[REDACTED]" if the key is 4 characters or shorter.
func SanitizeAPIKey(key string) string {
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return "..." + key[len(key)-4:]
}

// SanitizeSecret completely redacts a secret value.
func SanitizeSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

// Trace logs a message at trace level with optional attributes.
func Trace(logger *slog.Logger, msg string, attrs ...slog.Attr) {
	ctx := context.Background()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}
	logger.LogAttrs(ctx, LevelTrace, msg, attrs...)
}

// Truncate shortens s to at most n bytes for log output.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(" + strconv.Itoa(len(s)-n) + " more bytes)"
}
