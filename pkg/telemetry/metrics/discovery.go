package metrics

import (
	"time"

	"ccproxy-hq/ccproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DiscoveryMetrics tracks model listing.
//
// Metrics:
//   - ccproxy_relay_discovery_total: listing attempts by provider and result
//   - ccproxy_relay_discovery_duration_seconds: listing duration
//   - ccproxy_relay_provider_models: models found by the last successful listing
type DiscoveryMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	models   *prometheus.GaugeVec
}

// NewDiscoveryMetrics creates and registers discovery metrics with the provided registry.
func NewDiscoveryMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *DiscoveryMetrics {
	dm := &DiscoveryMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "discovery_total",
				Help:      "Total number of model listing attempts",
			},
			[]string{"provider", "result"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "discovery_duration_seconds",
				Help:      "Duration of model listing requests in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),

		models: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_models",
				Help:      "Number of models reported by the last successful listing",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(dm.attempts, dm.duration, dm.models)

	return dm
}

// Record records one listing attempt.
func (dm *DiscoveryMetrics) Record(provider string, ok bool, models int, duration time.Duration) {
	result := "error"
	if ok {
		result = "success"
		dm.models.WithLabelValues(provider).Set(float64(models))
	}
	dm.attempts.WithLabelValues(provider, result).Inc()
	dm.duration.WithLabelValues(provider).Observe(duration.Seconds())
}
