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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tombee/crewctl/internal/log"
	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the complete crewctl configuration.
type Config struct {
	// API configures the remote service.
	API APIConfig `yaml:"api"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Store selects where operation state lives.
	Store StoreConfig `yaml:"store"`

	// Server configures the local JSON API started by "crewctl serve".
	Server ServerConfig `yaml:"server"`

	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `yaml:"tracing"`
}

// APIConfig configures the remote AI service.
type APIConfig struct {
	// BaseURL is the service prefix every operation path is joined to.
	// Environment: CREWCTL_BASE_URL
	// Default: http://localhost:5000/api
	BaseURL string `yaml:"base_url"`

	// Token is the bearer credential. Prefer the keychain ("crewctl auth login")
	// over storing it here.
	// Environment: CREWCTL_TOKEN
	Token string `yaml:"token,omitempty"`

	// Timeout bounds each request. 0 means no bound.
	// Environment: CREWCTL_TIMEOUT
	// Default: 0
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent on every request.
	// Default: crewctl-http-client/1.0
	UserAgent string `yaml:"user_agent"`

	// Headers are extra fixed request headers.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: CREWCTL_LOG_LEVEL, LOG_LEVEL
	// Default: warn
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`

	// File sends logs to a rotated file instead of stderr.
	// Environment: CREWCTL_LOG_FILE
	File string `yaml:"file,omitempty"`

	// MaxSizeMB rotates File at this size. Default: 10
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Default: 5
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays removes older rotated files. 0 keeps them.
	MaxAgeDays int `yaml:"max_age_days,omitempty"`
}

// StoreConfig selects the operation state backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	// Environment: CREWCTL_STORE_BACKEND
	// Default: memory
	Backend string `yaml:"backend"`

	// Redis is used when Backend is "redis".
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Environment: CREWCTL_REDIS_ADDR
	// Default: localhost:6379
	Addr string `yaml:"addr"`

	// Environment: CREWCTL_REDIS_PASSWORD
	Password string `yaml:"password,omitempty"`

	// Environment: CREWCTL_REDIS_DB
	DB int `yaml:"db"`

	// Prefix for operation keys. Default: crewctl:operation:
	Prefix string `yaml:"prefix"`

	// TTL expires idle operation state. 0 keeps it forever.
	TTL time.Duration `yaml:"ttl"`
}

// ServerConfig configures the local JSON API.
type ServerConfig struct {
	// Listen is the TCP address.
	// Environment: CREWCTL_LISTEN
	// Default: 127.0.0.1:8088
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on span export.
	Enabled bool `yaml:"enabled"`

	// Exporter is "stdout", "otlp-http" or "otlp-grpc".
	// Environment: CREWCTL_TRACING_EXPORTER (setting it enables tracing)
	// Default: stdout
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector (host:port).
	// Environment: CREWCTL_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure,omitempty"`

	// SampleRate is the fraction of traces recorded (0, 1]. Default: 1
	SampleRate float64 `yaml:"sample_rate"`
}

// DefaultLogLevel keeps the terminal free of operator diagnostics.
const DefaultLogLevel = "warn"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   0,
			UserAgent: "crewctl-http-client/1.0",
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     string(log.FormatText),
			MaxSizeMB:  log.DefaultMaxSizeMB,
			MaxBackups: log.DefaultMaxBackups,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "crewctl:operation:",
			},
		},
		Server: ServerConfig{
			Listen:          "127.0.0.1:8088",
			ShutdownTimeout: 30 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter:   "stdout",
			SampleRate: 1,
		},
	}
}

// Load loads configuration from an optional YAML file, then environment
// variables. Environment variables take precedence over the file.
//
// A missing file at the default path is not an error; a missing file that
// was asked for explicitly is.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			configPath = p
		}
	}

	if configPath != "" {
		err := cfg.loadFromFile(configPath)
		var notFound *crewerrors.NotFoundError
		if err != nil && (explicit || !crewerrors.As(err, &notFound)) {
			return nil, &crewerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Apply defaults to any zero values (handles minimal configs)
	cfg.applyDefaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads variables from .env files without overriding variables
// that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return &crewerrors.ConfigError{
				Key:    "dotenv",
				Reason: fmt.Sprintf("failed to load %s", p),
				Cause:  err,
			}
		}
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaults.API.UserAgent
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = defaults.Store.Redis.Addr
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = defaults.Store.Redis.Prefix
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaults.Server.Listen
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = defaults.Tracing.SampleRate
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	// Expand home directory if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &crewerrors.NotFoundError{Resource: "config file", ID: path}
	}
	if err != nil {
		return crewerrors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables. Malformed
// numeric values are configuration errors.
func (c *Config) loadFromEnv() error {
	if val := os.Getenv("CREWCTL_BASE_URL"); val != "" {
		c.API.BaseURL = val
	}
	if val := os.Getenv("CREWCTL_TOKEN"); val != "" {
		c.API.Token = val
	}
	if val := os.Getenv("CREWCTL_TIMEOUT"); val != "" {
		d, err := parseTimeout(val)
		if err != nil {
			return &crewerrors.ConfigError{Key: "CREWCTL_TIMEOUT", Reason: "must be a duration such as 30s", Cause: err}
		}
		c.API.Timeout = d
	}

	// Log configuration
	logCfg := c.LoggerConfig()
	log.ApplyEnv(logCfg)
	c.Log.Level = logCfg.Level
	c.Log.Format = string(logCfg.Format)
	c.Log.AddSource = logCfg.AddSource
	c.Log.File = logCfg.File

	if val := os.Getenv("CREWCTL_STORE_BACKEND"); val != "" {
		c.Store.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("CREWCTL_REDIS_ADDR"); val != "" {
		c.Store.Redis.Addr = val
	}
	if val := os.Getenv("CREWCTL_REDIS_PASSWORD"); val != "" {
		c.Store.Redis.Password = val
	}
	if val := os.Getenv("CREWCTL_REDIS_DB"); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return &crewerrors.ConfigError{Key: "CREWCTL_REDIS_DB", Reason: "must be an integer", Cause: err}
		}
		c.Store.Redis.DB = db
	}

	if val := os.Getenv("CREWCTL_LISTEN"); val != "" {
		c.Server.Listen = val
	}

	if val := os.Getenv("CREWCTL_TRACING_EXPORTER"); val != "" {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("CREWCTL_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}

	return nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(val string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(val)
}

// LoggerConfig converts the log section for internal/log.
func (c *Config) LoggerConfig() *log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = c.Log.Level
	// A log file is the operator channel: at the default level it also
	// records info, which carries transport failure details.
	if c.Log.File != "" && c.Log.Level == DefaultLogLevel {
		cfg.Level = "info"
	}
	cfg.Format = log.Format(c.Log.Format)
	cfg.AddSource = c.Log.AddSource
	cfg.File = c.Log.File
	cfg.MaxSizeMB = c.Log.MaxSizeMB
	cfg.MaxBackups = c.Log.MaxBackups
	cfg.MaxAgeDays = c.Log.MaxAgeDays
	return cfg
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.API.Token = log.SanitizeSecret(c.API.Token)
	out.Store.Redis.Password = log.SanitizeSecret(c.Store.Redis.Password)
	if c.API.Headers != nil {
		out.API.Headers = make(map[string]string, len(c.API.Headers))
		for k, v := range c.API.Headers {
			if isSensitiveHeader(k) {
				v = log.SanitizeSecret(v)
			}
			out.API.Headers[k] = v
		}
	}
	return &out
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range []string{"auth", "token", "key", "secret", "cookie"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Save writes cfg as YAML to path with 0600 permissions, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
