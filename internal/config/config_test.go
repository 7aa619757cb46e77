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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

var envKeys = []string{
	"CREWCTL_BASE_URL", "CREWCTL_TOKEN", "CREWCTL_TIMEOUT",
	"CREWCTL_STORE_BACKEND", "CREWCTL_REDIS_ADDR", "CREWCTL_REDIS_PASSWORD", "CREWCTL_REDIS_DB",
	"CREWCTL_LISTEN", "CREWCTL_TRACING_EXPORTER", "CREWCTL_OTLP_ENDPOINT",
	"CREWCTL_DEBUG", "CREWCTL_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE", "CREWCTL_LOG_FILE",
}

// isolate clears crewctl environment variables and points XDG_CONFIG_HOME at
// an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("expected default base URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 0 {
		t.Errorf("expected no default timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.Server.Listen != "127.0.0.1:8088" {
		t.Errorf("expected listen 127.0.0.1:8088, got %q", cfg.Server.Listen)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 5 {
		t.Errorf("expected 10MB/5 rotation, got %d/%d", cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected missing default file to be ignored, got %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("expected default base URL, got %q", cfg.API.BaseURL)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *crewerrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Key != "config_file" {
		t.Errorf("expected key config_file, got %q", cfgErr.Key)
	}
	var notFound *crewerrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError in chain, got %v", err)
	}
	if notFound.Resource != "config file" {
		t.Errorf("expected resource %q, got %q", "config file", notFound.Resource)
	}
}

func TestLoad_FromFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  base_url: https://ai.example.com/api
  timeout: 45s
  headers:
    X-Team: growth
store:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
    ttl: 1h
server:
  listen: 0.0.0.0:9000
tracing:
  enabled: true
  exporter: otlp-http
  endpoint: collector:4318
  sample_rate: 0.25
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://ai.example.com/api" {
		t.Errorf("unexpected base URL %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.API.Headers["X-Team"] != "growth" {
		t.Errorf("expected header from file, got %v", cfg.API.Headers)
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.Redis.Addr != "redis:6379" || cfg.Store.Redis.DB != 2 {
		t.Errorf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Store.Redis.TTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.Store.Redis.TTL)
	}
	if cfg.Store.Redis.Prefix != "crewctl:operation:" {
		t.Errorf("expected default prefix to be applied, got %q", cfg.Store.Redis.Prefix)
	}
	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("unexpected listen %q", cfg.Server.Listen)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("unexpected tracing config %+v", cfg.Tracing)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected default log level, got %q", cfg.Log.Level)
	}
}

func TestLoad_DefaultPath(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "crewctl", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("server:\n  listen: 127.0.0.1:7000\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:7000" {
		t.Errorf("expected listen from default path, got %q", cfg.Server.Listen)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "config_file") {
		t.Fatalf("expected config_file error, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: http://file.example/api\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CREWCTL_BASE_URL", "http://env.example/api")
	t.Setenv("CREWCTL_TOKEN", "env-token")
	t.Setenv("CREWCTL_TIMEOUT", "2.5")
	t.Setenv("CREWCTL_STORE_BACKEND", "REDIS")
	t.Setenv("CREWCTL_REDIS_ADDR", "cache:6380")
	t.Setenv("CREWCTL_REDIS_PASSWORD", "pw")
	t.Setenv("CREWCTL_REDIS_DB", "3")
	t.Setenv("CREWCTL_LISTEN", ":9999")
	t.Setenv("CREWCTL_TRACING_EXPORTER", "otlp-http")
	t.Setenv("CREWCTL_OTLP_ENDPOINT", "otel:4318")
	t.Setenv("CREWCTL_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := map[string][2]string{
		"base_url": {cfg.API.BaseURL, "http://env.example/api"},
		"token":    {cfg.API.Token, "env-token"},
		"backend":  {cfg.Store.Backend, BackendRedis},
		"addr":     {cfg.Store.Redis.Addr, "cache:6380"},
		"password": {cfg.Store.Redis.Password, "pw"},
		"listen":   {cfg.Server.Listen, ":9999"},
		"exporter": {cfg.Tracing.Exporter, "otlp-http"},
		"endpoint": {cfg.Tracing.Endpoint, "otel:4318"},
		"level":    {cfg.Log.Level, "debug"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: expected %q, got %q", name, c[1], c[0])
		}
	}
	if cfg.API.Timeout != 2500*time.Millisecond {
		t.Errorf("expected 2.5s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Store.Redis.DB != 3 {
		t.Errorf("expected db 3, got %d", cfg.Store.Redis.DB)
	}
	if !cfg.Tracing.Enabled {
		t.Error("expected tracing exporter env to enable tracing")
	}
}

func TestLoad_BadEnvValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CREWCTL_TIMEOUT", "soon"},
		{"CREWCTL_REDIS_DB", "two"},
		{"CREWCTL_STORE_BACKEND", "postgres"},
		{"CREWCTL_BASE_URL", "localhost:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			var cfgErr *crewerrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CREWCTL_TOKEN=from-dotenv\nCREWCTL_LISTEN=:7777\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Already-set variables win over .env.
	t.Setenv("CREWCTL_LISTEN", ":1111")
	os.Unsetenv("CREWCTL_TOKEN")
	t.Cleanup(func() { os.Unsetenv("CREWCTL_TOKEN") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := os.Getenv("CREWCTL_TOKEN"); got != "from-dotenv" {
		t.Errorf("expected token from .env, got %q", got)
	}
	if got := os.Getenv("CREWCTL_LISTEN"); got != ":1111" {
		t.Errorf("expected existing value to win, got %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.API.Token = "secret-token"
	cfg.Store.Redis.Password = "pw"
	cfg.API.Headers = map[string]string{"X-Api-Key": "k", "X-Team": "growth"}

	r := cfg.Redacted()
	if r.API.Token != "[REDACTED]" || r.Store.Redis.Password != "[REDACTED]" {
		t.Errorf("expected secrets redacted, got %q / %q", r.API.Token, r.Store.Redis.Password)
	}
	if r.API.Headers["X-Api-Key"] != "[REDACTED]" || r.API.Headers["X-Team"] != "growth" {
		t.Errorf("unexpected headers %v", r.API.Headers)
	}
	if cfg.API.Token != "secret-token" || cfg.API.Headers["X-Api-Key"] != "k" {
		t.Error("Redacted must not modify the original")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.API.Timeout = 10 * time.Second
	cfg.Server.Listen = "127.0.0.1:9100"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.API.Timeout != 10*time.Second || loaded.Server.Listen != "127.0.0.1:9100" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.File = "/var/log/crewctl.log"
	cfg.Log.Level = "debug"

	lc := cfg.LoggerConfig()
	if lc.File != "/var/log/crewctl.log" || lc.Level != "debug" || string(lc.Format) != "text" {
		t.Errorf("unexpected logger config %+v", lc)
	}
}

func TestLoggerConfig_FileRecordsInfoAtDefaultLevel(t *testing.T) {
	cfg := Default()
	if lc := cfg.LoggerConfig(); lc.Level != DefaultLogLevel {
		t.Errorf("terminal logging should stay at %q, got %q", DefaultLogLevel, lc.Level)
	}

	cfg.Log.File = "/var/log/crewctl.log"
	if lc := cfg.LoggerConfig(); lc.Level != "info" {
		t.Errorf("expected file logging at info, got %q", lc.Level)
	}

	cfg.Log.Level = "error"
	if lc := cfg.LoggerConfig(); lc.Level != "error" {
		t.Errorf("explicit level must win, got %q", lc.Level)
	}
}

func TestConfigPaths(t *testing.T) {
	dir := isolate(t)

	got, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "crewctl", "config.yaml"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	created, err := EnsureConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(created); err != nil || !info.IsDir() {
		t.Errorf("expected directory to be created: %v", err)
	}
}
