package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/crewctl/internal/tracing"
)

// loggingTransport wraps an http.RoundTripper to set the User-Agent,
// propagate correlation IDs and log each round trip.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

func newLoggingTransport(base http.RoundTripper, userAgent string, logger *slog.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &loggingTransport{
		base:      base,
		userAgent: userAgent,
		logger:    logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	tracing.InjectIntoRequest(req.Context(), req)

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	logURL := sanitizeURL(req.URL)

	if err != nil {
		t.logger.InfoContext(req.Context(), "http request failed",
			"method", req.Method,
			"url", logURL,
			"duration_ms", duration,
			"error", err.Error(),
		)
		return nil, err
	}

	// Failures stay at Info: the CLI logs at warn by default and the user
	// only sees the operation's fixed message.
	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelInfo
	}
	t.logger.Log(req.Context(), level, "http request",
		"method", req.Method,
		"url", logURL,
		"status", resp.StatusCode,
		"duration_ms", duration,
	)

	return resp, nil
}
