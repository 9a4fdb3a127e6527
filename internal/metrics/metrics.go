// Package metrics holds the Prometheus collectors of the analytics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Result cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simonair_analytics_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simonair_analytics_cache_misses_total",
			Help: "Total number of result cache misses (absent or expired)",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simonair_analytics_cache_evictions_total",
			Help: "Total number of result cache evictions",
		},
		[]string{"reason"}, // "expired", "capacity", "deleted", "cleared"
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simonair_analytics_cache_entries",
			Help: "Current number of result cache entries",
		},
	)

	// Background jobs
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simonair_analytics_job_runs_total",
			Help: "Background job runs by outcome",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simonair_analytics_job_duration_seconds",
			Help:    "Background job run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	HealthScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simonair_analytics_health_score",
			Help: "Last computed health score (0-100)",
		},
	)

	// Engines
	EngineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simonair_analytics_engine_errors_total",
			Help: "Foreground analytics failures by operation and kind",
		},
		[]string{"operation", "kind"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simonair_analytics_store_query_duration_seconds",
			Help:    "Store access call duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simonair_analytics_store_requests_total",
			Help: "Guarded store calls by outcome",
		},
		[]string{"operation", "result"}, // "success", "failure", "rejected", "timeout"
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simonair_analytics_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordEngineError counts a foreground failure
func RecordEngineError(operation, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	EngineErrors.WithLabelValues(operation, kind).Inc()
}
