package metrics

import (
	"strconv"
	"time"

	"ccproxy-hq/ccproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks relayed /v1/messages requests.
//
// Metrics:
//   - ccproxy_relay_requests_total: request count by provider, outcome, status
//   - ccproxy_relay_request_duration_seconds: dispatch to end of stream
//   - ccproxy_relay_response_bytes_total: bytes written to clients
type RequestMetrics struct {
	// Total request count
	requestsTotal *prometheus.CounterVec

	// Request duration histogram
	requestDuration *prometheus.HistogramVec

	// Response bytes relayed
	bytesTotal *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of relayed requests",
			},
			[]string{"provider", "outcome", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of relayed requests in seconds, including the streamed body",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"provider", "outcome"},
		),

		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "response_bytes_total",
				Help:      "Total response bytes written to clients",
			},
			[]string{"provider"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.bytesTotal,
	)

	return rm
}

// RecordRequest records metrics for a completed relay.
func (rm *RequestMetrics) RecordRequest(provider, outcome string, status int, duration time.Duration, bytes int64) {
	rm.requestsTotal.WithLabelValues(provider, outcome, statusLabel(status)).Inc()
	rm.requestDuration.WithLabelValues(provider, outcome).Observe(duration.Seconds())

	if bytes > 0 {
		rm.bytesTotal.WithLabelValues(provider).Add(float64(bytes))
	}
}

// statusLabel keeps the status label bounded.
func statusLabel(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
