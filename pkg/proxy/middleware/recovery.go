package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"ccproxy-hq/ccproxy/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error with {"error":"internal_error"}. It logs the panic
// with stack trace for debugging but does not expose internal details to clients.
//
// http.ErrAbortHandler is re-panicked so net/http aborts the connection
// without logging; the relay uses it to drop a request on purpose.
//
// Example usage:
//
//	handler = RecoveryMiddleware(logger)(handler)
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				log := logger
				if log == nil {
					log = slog.Default()
				}
				log.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"` + types.CodeInternalError + `"}`))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
