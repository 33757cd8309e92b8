package http

import (
	"net/http"
)

// InputValidation returns middleware that validates and limits request inputs.
// It enforces limits on:
// - URI path length (2KB)
// - Query string length (8KB)
// - Request body size (1MB)
//
// The query limit leaves plenty of headroom over the 2048-character cap the
// feed pipeline itself puts on the url parameter. The body limit is sized for
// the JSON body of POST /validate; every other endpoint is query-driven.
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Path length limit (2KB)
			// Prevents path traversal attacks and keeps URLs reasonable
			if len(r.URL.Path) > 2048 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestURITooLong)
				_, _ = w.Write([]byte(`{"error":"URI too long"}`))
				return
			}

			// Query string length limit (8KB)
			if len(r.URL.RawQuery) > 8192 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestURITooLong)
				_, _ = w.Write([]byte(`{"error":"query string too large"}`))
				return
			}

			// Request body size limit (1MB)
			// Prevents memory exhaustion from large payloads
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

			next.ServeHTTP(w, r)
		})
	}
}
