package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// the number of bytes written. It forwards Flush and exposes the wrapped
// writer through Unwrap so http.ResponseController keeps working for
// streamed responses.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
	written    bool
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default to 200
	}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Flush forwards to the wrapped writer when it supports flushing.
func (rw *responseWriter) Flush() {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs HTTP requests and responses with structured logging.
// It records method, path, status code, latency and bytes written. The
// request ID is attached by the logging handler from the request context.
//
// Log format (JSON):
//
//	{
//	  "time": "2025-11-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000",
//	  "method": "POST",
//	  "path": "/v1/messages",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "bytes": 18231,
//	  "remote_addr": "127.0.0.1:54321"
//	}
//
// A nil logger uses slog.Default. Example usage:
//
//	handler = LoggingMiddleware(logger)(handler)
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger
			if log == nil {
				log = slog.Default()
			}

			startTime := time.Now()
			ctx := r.Context()
			rw := newResponseWriter(w)

			log.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			// An aborted handler still gets its completion line
			defer func() {
				latency := time.Since(startTime)

				logLevel := slog.LevelInfo
				if rw.statusCode >= 500 {
					logLevel = slog.LevelError
				} else if rw.statusCode >= 400 {
					logLevel = slog.LevelWarn
				}

				log.Log(ctx, logLevel, "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rw.statusCode,
					"latency_ms", latency.Milliseconds(),
					"bytes", rw.bytes,
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
