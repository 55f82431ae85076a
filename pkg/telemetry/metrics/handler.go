package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeTimeout bounds one collection. Collectors here only read counters,
// so anything slower is a stuck scrape.
const scrapeTimeout = 10 * time.Second

// Handler serves the collector's registry at telemetry.metrics.path.
// OpenMetrics is negotiated when the scraper asks for it. A failing
// collector does not hide the others.
//
//	mux.Handle("GET "+cfg.Telemetry.Metrics.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		Timeout:             scrapeTimeout,
		MaxRequestsInFlight: 4,
		ErrorHandling:       promhttp.ContinueOnError,
	})
}
