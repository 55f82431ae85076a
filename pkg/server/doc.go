// Package server wires the ccproxy HTTP surface and owns its lifecycle.
//
// # Routes
//
//   - POST /v1/messages: relay to the selected provider
//   - GET /api/state and POST /api/{select,refresh-models,reload,reset,
//     provider-auth,test-provider,refresh-and-test}: control plane (UI auth)
//   - GET /, /app.js, /styles.css: web UI (UI auth)
//   - GET /docs: documentation page
//   - /health, /ready, /version: operational endpoints
//   - GET /metrics: Prometheus metrics when telemetry.metrics is enabled
//
// Routes use method patterns, so a wrong method gets 405 from the mux.
//
// # Middleware Chain
//
// Requests pass through, outermost first:
//  1. CORS: Cross-Origin Resource Sharing headers when enabled
//  2. RequestID: X-Request-ID propagation or generation
//  3. Tracing: W3C trace context extraction
//  4. Logging: one structured line per request
//  5. Recovery: converts panics into 500s, except http.ErrAbortHandler
//
// # Graceful Shutdown
//
// Start blocks until its context is cancelled or Stop is called, then
// waits up to server.shutdown_timeout for in-flight streams:
//
//	srv := server.NewServer(cfg, server.Options{...})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
