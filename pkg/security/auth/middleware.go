package auth

import (
	"log/slog"
	"net/http"
)

// BasicRealm is the realm advertised on UI authentication failures.
const BasicRealm = "ccproxy"

// Authenticator applies the client key check to requests.
type Authenticator struct {
	validator *APIKeyValidator
	sources   []APIKeySource
	logger    *slog.Logger
}

// NewAuthenticator creates an authenticator using ClientKeySources.
func NewAuthenticator(validator *APIKeyValidator, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		validator: validator,
		sources:   ClientKeySources,
		logger:    logger.With("component", "auth"),
	}
}

// Authorize reports whether r carries the client key in one of the
// client key sources.
func (a *Authenticator) Authorize(r *http.Request) bool {
	if !a.validator.Enabled() {
		return true
	}
	return a.validator.Validate(ExtractAPIKey(r, a.sources))
}

// AuthorizeUI is Authorize with HTTP Basic as a fallback. Only the Basic
// password is compared; the user name is ignored.
func (a *Authenticator) AuthorizeUI(r *http.Request) bool {
	if a.Authorize(r) {
		return true
	}
	if _, password, ok := r.BasicAuth(); ok {
		return a.validator.Validate(password)
	}
	return false
}

// RequireUI wraps a UI or control-plane handler. Failures get 401 with a
// Basic challenge so browsers prompt for the key.
func (a *Authenticator) RequireUI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.AuthorizeUI(r) {
			a.logger.WarnContext(r.Context(), "unauthorized UI request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			w.Header().Set("WWW-Authenticate", `Basic realm="`+BasicRealm+`"`)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
