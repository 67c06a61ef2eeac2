package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boundaryapi_requests_total",
		Help: "Total API requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "boundaryapi_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	ThrottleRejectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boundaryapi_throttle_rejects_total",
		Help: "Total requests rejected by the anonymous throttle",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boundaryapi_cache_hits_total",
		Help: "Total response cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boundaryapi_cache_misses_total",
		Help: "Total response cache misses",
	})
	SpatialQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boundaryapi_spatial_queries_total",
		Help: "Total spatial predicate queries by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationMs,
		ThrottleRejectsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		SpatialQueriesTotal,
	)
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
