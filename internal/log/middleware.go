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
	"log/slog"
	"net/http"
	"time"
)

// HTTPRequest describes an incoming API request for logging purposes.
type HTTPRequest struct {
	Method        string
	Path          string
	RemoteAddr    string
	CorrelationID string
}

// HTTPResponse describes the outcome of an API request.
type HTTPResponse struct {
	Status     int
	Bytes      int
	DurationMs int64
}

// LogHTTPResponse logs a completed API request. 5xx responses log at error
// level, 4xx at warn, everything else at debug.
func LogHTTPResponse(logger *slog.Logger, req *HTTPRequest, resp *HTTPResponse) {
	attrs := []any{
		EventKey, "http_request",
		"method", req.Method,
		PathKey, req.Path,
		"status_code", resp.Status,
		"bytes", resp.Bytes,
		DurationKey, resp.DurationMs,
		"remote", req.RemoteAddr,
	}

	if req.CorrelationID != "" {
		attrs = append(attrs, "correlation_id", req.CorrelationID)
	}

	level := slog.LevelDebug
	switch {
	case resp.Status >= 500:
		level = slog.LevelError
	case resp.Status >= 400:
		level = slog.LevelWarn
	}

	logger.Log(context.Background(), level, "http request completed", attrs...)
}

// statusRecorder captures the status code and size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// HTTPMiddleware returns middleware that logs every request once it
// completes.
func HTTPMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			LogHTTPResponse(logger, &HTTPRequest{
				Method:        r.Method,
				Path:          r.URL.Path,
				RemoteAddr:    r.RemoteAddr,
				CorrelationID: r.Header.Get("X-Correlation-ID"),
			}, &HTTPResponse{
				Status:     rec.status,
				Bytes:      rec.bytes,
				DurationMs: time.Since(start).Milliseconds(),
			})
		})
	}
}
