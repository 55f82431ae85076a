package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys in the "ccproxy.*" namespace. HTTP attributes use the
// OpenTelemetry semantic convention names.
const (
	AttrProvider   = "ccproxy.provider"
	AttrRequestID  = "ccproxy.request_id"
	AttrMode       = "ccproxy.mode"
	AttrOutcome    = "ccproxy.outcome"
	AttrErrorCount = "ccproxy.consecutive_errors"
	AttrModels     = "ccproxy.models"

	AttrHTTPStatus = "http.status_code"
	AttrHTTPURL    = "http.url"
)

// SetProviderAttributes records which provider served the span.
func SetProviderAttributes(span trace.Span, provider, mode string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrMode, mode),
	)
}

// SetResponseAttributes records the upstream status and relay outcome.
func SetResponseAttributes(span trace.Span, status int, outcome string, consecutiveErrors int) {
	span.SetAttributes(
		attribute.Int(AttrHTTPStatus, status),
		attribute.String(AttrOutcome, outcome),
		attribute.Int(AttrErrorCount, consecutiveErrors),
	)
}
