package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the proxy.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ForwardedTotal      *prometheus.CounterVec
	UpstreamErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of requests received",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "passabola",
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ForwardedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "proxy",
				Name:      "forwarded_total",
				Help:      "Requests forwarded to the backend, by rewrite rule",
			},
			[]string{"rule"},
		),
		UpstreamErrorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "proxy",
				Name:      "upstream_errors_total",
				Help:      "Requests that could not reach the backend, by rewrite rule",
			},
			[]string{"rule"},
		),
	}
}
