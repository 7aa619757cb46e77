package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams contains query parameter names that should be redacted from logs.
// These are matched case-insensitively as substrings.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
}

// sanitizeURL removes credentials and sensitive query parameters from a URL
// before it is logged.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		safe.User = url.User("[REDACTED]")
	}

	q := safe.Query()
	for param := range q {
		if isSensitiveParam(param) {
			q.Set(param, "[REDACTED]")
		}
	}
	safe.RawQuery = q.Encode()

	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
