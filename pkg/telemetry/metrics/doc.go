// Package metrics provides Prometheus metrics collection for ccproxy.
//
// # Overview
//
// The metrics package exports counters and histograms for relayed requests,
// upstream provider behavior, and model discovery. All metrics live on a
// dedicated prometheus.Registry so tests can create isolated collectors.
//
// # Metrics Categories
//
//   - Request Metrics: relay count by outcome and status, duration, bytes
//   - Provider Metrics: time to headers, error types, consecutive errors, test results
//   - Discovery Metrics: listing attempts, duration, models found
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("zai", "relayed", 200, time.Since(start), n)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A nil *Collector records nothing.
package metrics
