package transport

import (
	"fmt"
)

// ErrorType classifies transport errors for logging and metrics.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates request timeout (client timeout or HTTP 408)
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates authentication failure (401, 403)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates other client errors (4xx)
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeDecode indicates a 2xx response whose body is not valid JSON
	ErrorTypeDecode ErrorType = "decode"

	// ErrorTypeInvalidReq indicates the request could not be built
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeCancelled indicates the caller's context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TransportError is returned by Client.Send for every failure at or below
// the HTTP call boundary.
type TransportError struct {
	// Type classifies the error
	Type ErrorType

	// StatusCode is the HTTP status code, zero when no response was received
	StatusCode int

	// Message is a human-readable description with credentials redacted
	Message string

	// RequestID is the X-Request-ID the service answered with, if any
	RequestID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// classifyStatus maps a non-2xx HTTP status to an ErrorType.
func classifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 408:
		return ErrorTypeTimeout
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeClient
	}
}
