package relay

import (
	"errors"
	"fmt"
)

// ErrProviderURLMissing is returned when the provider has no base URL.
var ErrProviderURLMissing = errors.New("provider_url_missing")

// UpstreamError is a failure to complete an exchange with a provider
// (connect, TLS, timeout or transport error). Non-2xx responses are not
// UpstreamErrors; they are handled by the threshold policy.
type UpstreamError struct {
	// Provider is the name of the provider
	Provider string

	// Op is the operation that failed: "forward" or "probe"
	Op string

	// Cause is the underlying transport error
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %q %s: %v", e.Provider, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// statusErrorType buckets a non-2xx status for the errors metric.
func statusErrorType(status int) string {
	switch {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	default:
		return "http_other"
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
