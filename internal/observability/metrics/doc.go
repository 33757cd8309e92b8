// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the feed pipeline metrics:
//   - Served feeds by build mode (pass-through vs synthesized)
//   - Discovery attempts by strategy and result
//   - Origin fetch outcomes and latency
//   - Result cache hit ratio and occupancy
//   - Circuit breaker activity
//
// HTTP transport metrics (request counts, latency, sizes) live with the
// middleware in internal/handler/http; this package covers everything
// behind the handlers.
//
// All metrics are registered with the Prometheus default registry and
// exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "pagefeed/internal/observability/metrics"
//
//	func buildFeed() {
//	    start := time.Now()
//	    // ... discover, fetch, assemble ...
//	    metrics.RecordFeedServed("synthesized")
//	    metrics.RecordOperationDuration("build", time.Since(start))
//	}
package metrics
