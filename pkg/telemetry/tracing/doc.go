// Package tracing provides OpenTelemetry distributed tracing for ccproxy.
//
// # Overview
//
// When enabled, spans are exported over OTLP gRPC. Incoming W3C trace
// context is honored by HTTPMiddleware, and the relay injects the current
// context into upstream requests so a provider that traces can join the
// same trace.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sample_ratio: 0.1
//
// Sampling is parent-based: a sampled caller is always sampled, otherwise
// sample_ratio decides by trace ID.
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "relay.forward")
//	defer span.End()
//
// When disabled, and for a nil *Tracer, Start returns noop spans.
package tracing
