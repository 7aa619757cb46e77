package httpclient

import (
	"fmt"
	"log/slog"
	"time"
)

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds each request end to end. Zero means no client-imposed
	// bound; the service and the network decide. Must be >= 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value. Required.
	UserAgent string

	// Logger receives request logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with no timeout and the crewctl User-Agent.
func DefaultConfig() Config {
	return Config{
		Timeout:   0,
		UserAgent: "crewctl-http-client/1.0",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
