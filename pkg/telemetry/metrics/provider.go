package metrics

import (
	"ccproxy-hq/ccproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks upstream provider behavior.
//
// Metrics:
//   - ccproxy_relay_provider_healthy: last test result (1=passed, 0=failed)
//   - ccproxy_relay_upstream_latency_seconds: time to upstream response headers
//   - ccproxy_relay_upstream_errors_total: upstream failures by type
//   - ccproxy_relay_consecutive_errors: current consecutive non-2xx count
type ProviderMetrics struct {
	// Last provider test result
	health *prometheus.GaugeVec

	// Time to first byte histogram
	latency *prometheus.HistogramVec

	// Provider error counter
	errors *prometheus.CounterVec

	// Consecutive error gauge
	consecutive *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_healthy",
				Help:      "Result of the last provider test (1=passed, 0=failed)",
			},
			[]string{"provider"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_latency_seconds",
				Help:      "Time until upstream response headers in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"provider"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Total number of upstream errors by type",
			},
			[]string{"provider", "error_type"},
		),

		consecutive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "consecutive_errors",
				Help:      "Current consecutive non-2xx responses per provider",
			},
			[]string{"provider"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		pm.health,
		pm.latency,
		pm.errors,
		pm.consecutive,
	)

	return pm
}

// UpdateHealth sets the provider test gauge.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

// RecordLatency records time to upstream response headers.
func (pm *ProviderMetrics) RecordLatency(provider string, latencySeconds float64) {
	pm.latency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordError records an error from a provider.
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errors.WithLabelValues(provider, errorType).Inc()
}

// SetConsecutiveErrors sets the consecutive error gauge.
func (pm *ProviderMetrics) SetConsecutiveErrors(provider string, count int) {
	pm.consecutive.WithLabelValues(provider).Set(float64(count))
}
