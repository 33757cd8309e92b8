package metrics

import (
	"time"
)

// RecordFeedServed records one served feed by build mode.
// Mode should be "passthrough" or "synthesized".
func RecordFeedServed(mode string) {
	FeedsServedTotal.WithLabelValues(mode).Inc()
}

// RecordDiscovery records one discovery run: the strategy that settled it,
// the result ("found", "negative" or "transient"), and the wall time spent.
// For negative and transient runs the strategy is the last one tried.
func RecordDiscovery(strategy, result string, duration time.Duration) {
	DiscoveryTotal.WithLabelValues(strategy, result).Inc()
	DiscoveryDuration.Observe(duration.Seconds())
}

// RecordOriginFetch records one origin fetch. Outcome is "success" or the
// error kind string (e.g. "origin_timeout").
func RecordOriginFetch(outcome string, duration time.Duration) {
	OriginFetchTotal.WithLabelValues(outcome).Inc()
	OriginFetchDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records one result cache lookup.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// UpdateCacheEntries updates the result cache occupancy gauge.
func UpdateCacheEntries(count int) {
	CacheEntries.Set(float64(count))
}

// RecordCircuitRejection records a fetch refused by an open circuit breaker.
func RecordCircuitRejection() {
	CircuitRejectionsTotal.Inc()
}

// UpdateOpenCircuits updates the open circuit breaker gauge.
func UpdateOpenCircuits(count int) {
	OpenCircuits.Set(float64(count))
}

// RecordArticleYield records how many articles a feed build produced.
func RecordArticleYield(count int) {
	ArticleYield.Observe(float64(count))
}
