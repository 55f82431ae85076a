// Package telemetry groups the observability packages of ccproxy.
//
// # Components
//
//   - logging: slog construction with credential redaction and request context
//   - metrics: Prometheus collectors for relays, providers and discovery
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness, readiness and version endpoints
//
// Each subpackage is configured from its section of config.TelemetryConfig
// and is safe to use when disabled.
package telemetry
