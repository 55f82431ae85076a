package metrics

import (
	"time"

	"ccproxy-hq/ccproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric ccproxy exports.
//
// A nil *Collector is valid and records nothing, so components can take a
// collector unconditionally.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	// Relayed request metrics
	requestMetrics *RequestMetrics

	// Upstream provider metrics
	providerMetrics *ProviderMetrics

	// Model discovery metrics
	discoveryMetrics *DiscoveryMetrics
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh one is created.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = config.DefaultLatencyBuckets
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		requestMetrics:   NewRequestMetrics(cfg, registry),
		providerMetrics:  NewProviderMetrics(cfg, registry),
		discoveryMetrics: NewDiscoveryMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.IsEnabled()
}

// RecordRequest records a finished relay.
//
// Parameters:
//   - provider: provider name
//   - outcome: "relayed", "dropped", "client_gone" or "failed"
//   - status: upstream status code, 0 if none was received
//   - duration: time from dispatch to the end of the stream
//   - bytes: response bytes written to the client
func (c *Collector) RecordRequest(provider, outcome string, status int, duration time.Duration, bytes int64) {
	if !c.enabled() {
		return
	}

	c.requestMetrics.RecordRequest(provider, outcome, status, duration, bytes)
}

// RecordUpstreamLatency records the time until upstream response headers.
func (c *Collector) RecordUpstreamLatency(provider string, latency time.Duration) {
	if !c.enabled() {
		return
	}

	c.providerMetrics.RecordLatency(provider, latency.Seconds())
}

// RecordUpstreamError records a failure talking to a provider.
//
// Common error types:
//   - "http_4xx", "http_5xx": non-2xx response
//   - "network": connection or timeout failure
//   - "url_missing": provider has no base URL
func (c *Collector) RecordUpstreamError(provider, errorType string) {
	if !c.enabled() {
		return
	}

	c.providerMetrics.RecordError(provider, errorType)
}

// SetConsecutiveErrors publishes the provider's consecutive error count.
func (c *Collector) SetConsecutiveErrors(provider string, count int) {
	if !c.enabled() {
		return
	}

	c.providerMetrics.SetConsecutiveErrors(provider, count)
}

// RecordProbe records a provider test result.
func (c *Collector) RecordProbe(provider string, ok bool) {
	if !c.enabled() {
		return
	}

	c.providerMetrics.UpdateHealth(provider, ok)
}

// RecordDiscovery records one model listing attempt.
func (c *Collector) RecordDiscovery(provider string, ok bool, models int, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.discoveryMetrics.Record(provider, ok, models, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
