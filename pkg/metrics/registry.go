// Package metrics exposes Prometheus instrumentation for the HTTP API
// and the storage backends: request counters and latency histograms,
// block byte counters, and vault-stats query latency. These are
// observability counters only; they imply no garbage-collection or
// reaper policy.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	enabled  atomic.Bool
)

func init() {
	enabled.Store(true)
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

// SetEnabled toggles whether Middleware, ObserveBlockBytes and
// ObserveVaultStats record anything. Disabled by deuced when
// config.Metrics is off.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	return enabled.Load()
}

// Handler returns the HTTP handler that serves the registry in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

var (
	httpRequestsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "deuce_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deuce_http_request_duration_milliseconds",
			Help:    "Duration of HTTP requests in milliseconds by route and method",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		},
		[]string{"route", "method"},
	)

	blockBytesTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "deuce_block_bytes_total",
			Help: "Total bytes transferred through the block store by direction",
		},
		[]string{"direction"},
	)

	vaultStatsDuration = promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deuce_vault_stats_duration_milliseconds",
			Help:    "Duration of vault statistics queries in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)
)
