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
	"fmt"
	"net/url"

	"github.com/tombee/crewctl/internal/log"
	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// Validate checks the configuration and returns the first problem as a
// *errors.ConfigError. The token is not checked here since it may come from
// the keychain.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &crewerrors.ConfigError{
			Key:    "api.base_url",
			Reason: fmt.Sprintf("must be an absolute http(s) URL, got %q", c.API.BaseURL),
			Cause:  err,
		}
	}

	if c.API.Timeout < 0 {
		return &crewerrors.ConfigError{Key: "api.timeout", Reason: "must not be negative"}
	}

	if !log.ValidLevel(c.Log.Level) {
		return &crewerrors.ConfigError{Key: "log.level", Reason: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}

	switch log.Format(c.Log.Format) {
	case log.FormatJSON, log.FormatText:
	default:
		return &crewerrors.ConfigError{Key: "log.format", Reason: fmt.Sprintf("must be json or text, got %q", c.Log.Format)}
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return &crewerrors.ConfigError{Key: "store.redis.addr", Reason: "required when store.backend is redis"}
		}
		if c.Store.Redis.DB < 0 {
			return &crewerrors.ConfigError{Key: "store.redis.db", Reason: "must not be negative"}
		}
		if c.Store.Redis.TTL < 0 {
			return &crewerrors.ConfigError{Key: "store.redis.ttl", Reason: "must not be negative"}
		}
	default:
		return &crewerrors.ConfigError{Key: "store.backend", Reason: fmt.Sprintf("must be memory or redis, got %q", c.Store.Backend)}
	}

	if c.Server.Listen == "" {
		return &crewerrors.ConfigError{Key: "server.listen", Reason: "must not be empty"}
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout":
		case "otlp-http", "otlp-grpc":
			if c.Tracing.Endpoint == "" {
				return &crewerrors.ConfigError{Key: "tracing.endpoint", Reason: fmt.Sprintf("required for the %s exporter", c.Tracing.Exporter)}
			}
		default:
			return &crewerrors.ConfigError{Key: "tracing.exporter", Reason: fmt.Sprintf("must be stdout, otlp-http or otlp-grpc, got %q", c.Tracing.Exporter)}
		}
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return &crewerrors.ConfigError{Key: "tracing.sample_rate", Reason: "must be between 0 and 1"}
	}

	return nil
}
