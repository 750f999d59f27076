// Package telemetry exposes the Prometheus instrumentation shared across the
// provider client, the compute pipeline and the HTTP layer.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ComputeDuration tracks end-to-end risk bundle computation latency.
	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskbook_compute_duration_seconds",
		Help:    "Duration of full risk bundle computations",
		Buckets: prometheus.DefBuckets,
	})

	// ComputeErrors counts whole-invocation failures by reason.
	ComputeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbook_compute_errors_total",
		Help: "Risk computations that failed outright",
	}, []string{"reason"})

	// FetchRequests counts successful provider chart fetches.
	FetchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskbook_fetch_requests_total",
		Help: "Successful market data chart fetches",
	})

	// FetchErrors counts provider failures by class.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbook_fetch_errors_total",
		Help: "Market data fetch failures",
	}, []string{"class"})

	// CacheHits and CacheMisses track the Redis frame cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskbook_frame_cache_hits_total",
		Help: "History fetches served from the frame cache",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskbook_frame_cache_misses_total",
		Help: "History fetches that went to the provider",
	})

	// HTTPRequests counts API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbook_http_requests_total",
		Help: "API requests served",
	}, []string{"route", "status"})

	// HTTPDuration tracks API latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskbook_http_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
