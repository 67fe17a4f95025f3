// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogQueryDuration observes catalog store latency per operation.
	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booksage_catalog_query_duration_seconds",
			Help:    "Duration of catalog queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksage_catalog_query_errors_total",
			Help: "Total number of failed catalog queries",
		},
		[]string{"operation"},
	)

	// CacheRequests counts cache lookups by result type and outcome (hit, miss, error).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksage_cache_requests_total",
			Help: "Cache lookups by result type and outcome",
		},
		[]string{"result_type", "outcome"},
	)

	// PipelineResolutions counts resolved requests by path (author, topic, none) and tier.
	PipelineResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksage_pipeline_resolutions_total",
			Help: "Resolved recommendation requests by path and tier",
		},
		[]string{"path", "tier"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booksage_pipeline_duration_seconds",
			Help:    "End-to-end duration of resolve-and-recommend",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// RankingOutcomes counts ranking-service results by status.
	RankingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksage_ranking_outcomes_total",
			Help: "Ranking service call outcomes by status",
		},
		[]string{"status"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "booksage_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTPRequestDuration observes handler latency by route pattern and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booksage_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveCatalog records the duration of a catalog operation started at start
// and counts it as failed when err is non-nil.
func ObserveCatalog(operation string, start time.Time, err error) {
	CatalogQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		CatalogQueryErrors.WithLabelValues(operation).Inc()
	}
}
