package discovery

import "fmt"

// Reasons a model listing fails.
const (
	ReasonURLMissing = "missing base_url"
	ReasonRequest    = "request failed"
	ReasonStatus     = "unexpected status"
	ReasonDecode     = "invalid model list"
	ReasonEmpty      = "empty model list"
	ReasonSkipped    = "skip Note"
)

// FetchError describes a failed model listing.
type FetchError struct {
	// Provider is the name of the provider
	Provider string

	// Reason is one of the Reason constants
	Reason string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

// Unwrap returns the underlying error for error chain support.
func (e *FetchError) Unwrap() error {
	return e.Cause
}
