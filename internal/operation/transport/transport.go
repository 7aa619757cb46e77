// Package transport sends operation payloads to the remote service.
//
// The transport layer owns protocol concerns (URL joining, bearer
// authentication, JSON encoding, status classification) so the invoker only
// deals with operation names, payloads and outcomes. Every failure is
// reported as a *TransportError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/tombee/crewctl/pkg/httpclient"
)

// Client sends one JSON body to a path under the service base URL and
// returns the decoded JSON response.
type Client interface {
	// Send issues exactly one request. The returned value is whatever the
	// service answered with, decoded but otherwise untouched.
	// Returns *TransportError on failure.
	Send(ctx context.Context, path string, body map[string]any) (any, error)
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// BaseURL is the service prefix every operation path is joined to,
	// e.g. "http://localhost:5000/api". Required.
	BaseURL string

	// Token is the bearer credential sent on every request. Required.
	Token string

	// Headers are additional fixed headers. They cannot override
	// Authorization or Content-Type.
	Headers map[string]string

	// HTTPClient performs the requests. Default: httpclient.New(httpclient.DefaultConfig()).
	HTTPClient *http.Client
}

// Validate checks if the configuration is valid.
func (c *HTTPConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base_url must include host")
	}

	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("token is required for bearer auth")
	}

	return nil
}

// HTTPClient implements Client over HTTP POST with bearer authentication.
type HTTPClient struct {
	baseURL string
	headers http.Header
	client  *http.Client
}

// NewHTTPClient creates an HTTP transport from config.
func NewHTTPClient(config *HTTPConfig) (*HTTPClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := config.HTTPClient
	if client == nil {
		var err error
		client, err = httpclient.New(httpclient.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
	}

	headers := make(http.Header)
	for key, value := range config.Headers {
		headers.Set(key, value)
	}
	headers.Set("Accept", "application/json")
	headers.Set("Authorization", "Bearer "+config.Token)
	headers.Set("Content-Type", "application/json")

	return &HTTPClient{
		baseURL: config.BaseURL,
		headers: headers,
		client:  client,
	}, nil
}

// Send implements Client.
func (c *HTTPClient) Send(ctx context.Context, path string, body map[string]any) (any, error) {
	target, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("invalid path %q: %s", path, err.Error()),
			Cause:   err,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("failed to encode request body: %s", err.Error()),
			Cause:   err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("failed to build HTTP request: %s", err.Error()),
			Cause:   err,
		}
	}
	req.Header = c.headers.Clone()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Type:       ErrorTypeConnection,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response body: %s", err.Error()),
			RequestID:  resp.Header.Get("X-Request-ID"),
			Cause:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if trimmed := strings.TrimSpace(string(data)); trimmed != "" && len(trimmed) < 500 {
			message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, trimmed)
		}
		return nil, &TransportError{
			Type:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    message,
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &TransportError{
			Type:       ErrorTypeDecode,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed JSON response: %s", err.Error()),
			RequestID:  resp.Header.Get("X-Request-ID"),
			Cause:      err,
		}
	}

	return result, nil
}

// classifyHTTPError classifies http.Client errors into TransportError types.
func classifyHTTPError(ctx context.Context, err error) *TransportError {
	if ctx.Err() != nil {
		return &TransportError{
			Type:    ErrorTypeCancelled,
			Message: "request cancelled",
			Cause:   err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{
			Type:    ErrorTypeTimeout,
			Message: "request timeout",
			Cause:   err,
		}
	}

	return &TransportError{
		Type:    ErrorTypeConnection,
		Message: fmt.Sprintf("connection error: %s", err.Error()),
		Cause:   err,
	}
}
