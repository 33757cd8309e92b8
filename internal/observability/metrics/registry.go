// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics track the feed build pipeline end to end
var (
	// FeedsServedTotal counts feeds served by mode (passthrough or synthesized)
	FeedsServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeds_served_total",
			Help: "Total number of feeds served, by build mode",
		},
		[]string{"mode"}, // mode: passthrough, synthesized
	)

	// DiscoveryTotal counts feed discovery attempts by strategy and result
	DiscoveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_discovery_total",
			Help: "Total number of feed discovery attempts",
		},
		[]string{"strategy", "result"}, // result: found, negative, transient
	)

	// DiscoveryDuration measures time spent discovering a feed for a page.
	// The upper buckets cover the worst case of a full candidate probe sweep.
	DiscoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_discovery_duration_seconds",
			Help:    "Time taken to run feed discovery for a page",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	// OriginFetchTotal counts origin fetches by outcome
	OriginFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origin_fetch_total",
			Help: "Total number of origin fetches",
		},
		[]string{"outcome"}, // outcome: success or the error kind
	)

	// OriginFetchDuration measures time to fetch one origin resource
	OriginFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "origin_fetch_duration_seconds",
			Help:    "Time taken to fetch a resource from an origin",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ArticleYield measures how many articles one feed build produced
	ArticleYield = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_article_yield",
			Help:    "Number of articles in a built feed",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 50},
		},
	)
)

// Cache metrics track result cache effectiveness
var (
	// CacheLookupsTotal counts result cache lookups by outcome
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	// CacheEntries tracks the current number of cached feed results
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "result_cache_entries",
			Help: "Current number of entries in the result cache",
		},
	)
)

// Origin protection metrics track circuit breaker activity
var (
	// CircuitRejectionsTotal counts fetches refused by an open circuit breaker
	CircuitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "origin_circuit_rejections_total",
			Help: "Total number of origin fetches refused by an open circuit breaker",
		},
	)

	// OpenCircuits tracks the number of currently open origin circuit breakers
	OpenCircuits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "origin_circuits_open",
			Help: "Number of origin circuit breakers currently open",
		},
	)
)

// RecordOperationDuration records the duration of a named pipeline operation
var operationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pipeline_operation_duration_seconds",
		Help:    "Duration of named pipeline operations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	},
	[]string{"operation"},
)

// RecordOperationDuration records the duration of a named operation
// (e.g. "extract", "synthesize", "passthrough").
func RecordOperationDuration(operation string, duration time.Duration) {
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
