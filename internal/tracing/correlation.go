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

// Package tracing provides correlation IDs and OpenTelemetry setup.
package tracing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CorrelationID identifies one invocation across the client, its logs and
// the remote service. It uses RFC 4122 UUID format (36 characters).
type CorrelationID string

type correlationKeyType struct{}

var correlationKey = correlationKeyType{}

// HTTP header names for correlation ID propagation.
const (
	// HeaderCorrelationID is the primary header for correlation ID.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is sent alongside so services that only log
	// X-Request-ID still see the invocation ID.
	HeaderRequestID = "X-Request-ID"
)

// NewCorrelationID generates a new unique correlation ID.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New().String())
}

// String returns the string representation of the correlation ID.
func (c CorrelationID) String() string {
	return string(c)
}

// IsValid checks if the correlation ID is a canonical UUID.
func (c CorrelationID) IsValid() bool {
	if len(c) != 36 {
		return false
	}
	_, err := uuid.Parse(string(c))
	return err == nil
}

// ToContext adds the correlation ID to the context.
func ToContext(ctx context.Context, id CorrelationID) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// FromContext retrieves the correlation ID from the context.
// If no correlation ID is found, it generates a new one.
func FromContext(ctx context.Context) CorrelationID {
	if id, ok := ctx.Value(correlationKey).(CorrelationID); ok {
		return id
	}
	return NewCorrelationID()
}

// FromContextOrEmpty retrieves the correlation ID from the context.
// Returns empty string if no correlation ID is found.
func FromContextOrEmpty(ctx context.Context) CorrelationID {
	if id, ok := ctx.Value(correlationKey).(CorrelationID); ok {
		return id
	}
	return ""
}

// InjectIntoRequest adds the context's correlation ID to outbound headers.
func InjectIntoRequest(ctx context.Context, req *http.Request) {
	id := FromContextOrEmpty(ctx)
	if id == "" {
		return
	}
	req.Header.Set(HeaderCorrelationID, id.String())
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, id.String())
	}
}

// CorrelationMiddleware stores a correlation ID in the request context,
// reusing a valid inbound X-Correlation-ID and generating one otherwise.
// The ID is echoed on the response.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := CorrelationID(r.Header.Get(HeaderCorrelationID))
		if !id.IsValid() {
			id = NewCorrelationID()
		}

		w.Header().Set(HeaderCorrelationID, id.String())
		next.ServeHTTP(w, r.WithContext(ToContext(r.Context(), id)))
	})
}
