// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions that handle common functionality
// across all HTTP requests: request ID generation, logging, CORS and panic
// recovery.
//
// # Middleware Chain
//
// The server chains middleware in this order, outermost first:
//
//	handler = CORS(RequestID(Logging(Recovery(handler))))
//
// Recovery sits innermost so a recovered panic is still logged with its
// 500 status and request ID.
//
// There is no timeout middleware. Responses on /v1/messages are long-lived
// streams; the relay bounds each upstream exchange with proxy.api_timeout
// instead.
//
// # Request ID
//
// RequestIDMiddleware generates a UUID v4 for each request unless the client
// sent one:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is stored with logging.WithRequestID, so every record logged with
// the request context carries request_id.
//
// # Logging
//
// LoggingMiddleware records one line per request with method, path,
// status, latency_ms and bytes. 4xx responses log at WARN and 5xx at ERROR.
// Its response writer supports Flush and Unwrap, which the relay relies on
// to stream.
//
// # Recovery
//
// RecoveryMiddleware turns a panic into a 500 {"error":"internal_error"}.
// A panic with http.ErrAbortHandler passes through so net/http closes the
// connection silently.
package middleware
