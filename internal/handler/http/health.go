// Package http provides HTTP middleware and operational endpoints for the
// feed service. It includes health check endpoints, metrics collection, and
// middleware for logging, rate limiting, timeouts, and request validation.
package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"pagefeed/internal/cache"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`    // Status of each check item
	Version   string                 `json:"version"`   // Application version
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string                 `json:"status"`            // "healthy", "degraded" or "unhealthy"
	Message string                 `json:"message,omitempty"` // Optional status message
	Details map[string]interface{} `json:"details,omitempty"` // Optional additional details
}

// HealthHandler handles health check endpoint requests.
// The service holds no database or external connection of its own, so the
// checks report the state of the in-process components instead: result cache
// occupancy and the per-origin circuit breakers.
type HealthHandler struct {
	Version string

	// CacheStats returns the result cache counters.
	CacheStats func() cache.Stats

	// OpenCircuits and TrackedCircuits report the origin circuit breakers.
	// Open breakers are a degraded (not unhealthy) state: only the affected
	// origins are refused, everything else keeps serving.
	OpenCircuits    func() int
	TrackedCircuits func() int
}

// ServeHTTP reports the application health status.
// Returns 200 OK if healthy, or 503 Service Unavailable if any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]CheckStatus)
	allHealthy := true

	// 結果キャッシュチェック
	if h.CacheStats != nil {
		checks["cache"] = h.checkCache()
	} else {
		checks["cache"] = CheckStatus{
			Status:  "unhealthy",
			Message: "not configured",
		}
		allHealthy = false
	}

	// オリジンサーキットブレーカーチェック
	if h.OpenCircuits != nil {
		checks["origin_circuits"] = h.checkCircuits()
	}

	// "degraded" is a warning state, not a failure - system is still operational
	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkCache reports result cache occupancy and effectiveness.
func (h *HealthHandler) checkCache() CheckStatus {
	stats := h.CacheStats()
	details := map[string]interface{}{
		"entries":   stats.Entries,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"hit_ratio": stats.HitRatio,
	}
	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// checkCircuits reports the per-origin circuit breaker population.
// Open breakers mean some origins are temporarily refused; the check reports
// "degraded" then, never "unhealthy", because the condition is scoped to the
// failing origins and clears on its own.
func (h *HealthHandler) checkCircuits() CheckStatus {
	open := h.OpenCircuits()
	details := map[string]interface{}{
		"open": open,
	}
	if h.TrackedCircuits != nil {
		details["tracked"] = h.TrackedCircuits()
	}

	if open > 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "one or more origins are circuit-broken",
			Details: details,
		}
	}
	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// ReadyHandler handles Kubernetes readiness probe requests.
// All state is in-process, so readiness only means the pipeline has been
// wired; the handler is registered after dependency injection completes.
type ReadyHandler struct{}

// ServeHTTP returns 200 OK once the server is accepting traffic.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler handles Kubernetes liveness probe requests.
// It performs a lightweight check to verify the application is responsive.
type LiveHandler struct{}

// ServeHTTP performs a simple liveness check and always returns 200 OK
// if the application is running and able to respond.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
