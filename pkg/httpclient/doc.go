// Package httpclient builds the *http.Client used to reach the remote
// AI service.
//
// The client composes a pooled TLS 1.2+ transport with a logging layer that:
//   - sets the User-Agent header when the caller did not
//   - propagates the invocation's correlation ID (X-Correlation-ID, X-Request-ID)
//   - logs method, sanitized URL, status and duration at debug level, and
//     failures at warn level
//
// There is deliberately no retry layer: each call issues exactly one request.
//
//	client, err := httpclient.New(httpclient.Config{UserAgent: "crewctl/1.0"})
//	if err != nil {
//	    return err
//	}
package httpclient
