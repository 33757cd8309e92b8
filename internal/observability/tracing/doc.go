// Package tracing provides OpenTelemetry tracing integration.
//
// The HTTP middleware extracts W3C Trace Context from incoming requests,
// opens a server span per request, and echoes the trace ID back in the
// X-Trace-Id response header so clients can correlate slow feed builds
// with server-side spans.
//
// No exporter is configured by default; spans stay in-process until an
// OTLP exporter is wired into the tracer provider.
//
// Example usage:
//
//	import "pagefeed/internal/observability/tracing"
//
//	func buildFeed(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "build-feed")
//	    defer span.End()
//	    // ... fetch, extract, assemble ...
//	}
package tracing
