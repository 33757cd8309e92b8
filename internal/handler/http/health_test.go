package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefeed/internal/cache"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		handler        *HealthHandler
		expectedStatus int
		expectHealthy  bool
		expectChecks   map[string]string
	}{
		{
			name: "all components healthy",
			handler: &HealthHandler{
				Version:         "test-version",
				CacheStats:      func() cache.Stats { return cache.Stats{Entries: 3, Hits: 10, Misses: 2, HitRatio: 10.0 / 12.0} },
				OpenCircuits:    func() int { return 0 },
				TrackedCircuits: func() int { return 5 },
			},
			expectedStatus: http.StatusOK,
			expectHealthy:  true,
			expectChecks:   map[string]string{"cache": "healthy", "origin_circuits": "healthy"},
		},
		{
			name: "open circuit breakers degrade but stay healthy",
			handler: &HealthHandler{
				Version:         "test-version",
				CacheStats:      func() cache.Stats { return cache.Stats{} },
				OpenCircuits:    func() int { return 2 },
				TrackedCircuits: func() int { return 7 },
			},
			expectedStatus: http.StatusOK,
			expectHealthy:  true,
			expectChecks:   map[string]string{"cache": "healthy", "origin_circuits": "degraded"},
		},
		{
			name: "missing cache wiring is unhealthy",
			handler: &HealthHandler{
				Version: "test-version",
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectHealthy:  false,
			expectChecks:   map[string]string{"cache": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			if tt.expectHealthy {
				assert.Equal(t, "healthy", resp.Status)
			} else {
				assert.Equal(t, "unhealthy", resp.Status)
			}
			assert.Equal(t, "test-version", resp.Version)
			assert.NotEmpty(t, resp.Timestamp)

			for check, status := range tt.expectChecks {
				require.Contains(t, resp.Checks, check)
				assert.Equal(t, status, resp.Checks[check].Status)
			}
		})
	}
}

func TestHealthHandler_CacheDetails(t *testing.T) {
	handler := &HealthHandler{
		Version:    "v1",
		CacheStats: func() cache.Stats { return cache.Stats{Entries: 42, Hits: 6, Misses: 4, HitRatio: 0.6} },
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	details := resp.Checks["cache"].Details
	require.NotNil(t, details)
	assert.Equal(t, float64(42), details["entries"])
	assert.Equal(t, 0.6, details["hit_ratio"])
}

func TestReadyHandler_ServeHTTP(t *testing.T) {
	handler := &ReadyHandler{}

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestLiveHandler_ServeHTTP(t *testing.T) {
	handler := &LiveHandler{}

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}
