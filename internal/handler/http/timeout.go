package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pagefeed/internal/handler/http/requestid"
	"pagefeed/internal/handler/http/respond"
)

// Timeout caps the total time a request may spend in the pipeline. A request
// that outlives the deadline gets a 504 in the standard error envelope, and
// its context is cancelled so in-flight origin fetches unwind.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			r = r.WithContext(ctx)

			done := make(chan struct{})
			var mu sync.Mutex
			expired := false

			// ハンドラ本体とタイムアウト側のどちらか一方だけが書き込む
			dw := &deadlineWriter{ResponseWriter: w, mu: &mu, expired: &expired}

			go func() {
				next.ServeHTTP(dw, r)
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				mu.Lock()
				expired = true
				if !dw.wrote {
					respond.JSON(w, http.StatusGatewayTimeout, respond.ErrorBody{
						Error:     true,
						Code:      "REQUEST_TIMEOUT",
						Message:   "request timeout",
						RequestID: requestid.FromContext(r.Context()),
						Timestamp: time.Now().UTC().Format(time.RFC3339),
						Path:      r.URL.Path,
					})
				}
				mu.Unlock()
			}
		})
	}
}

// deadlineWriter suppresses handler writes once the deadline response has
// gone out.
type deadlineWriter struct {
	http.ResponseWriter
	mu      *sync.Mutex
	expired *bool
	wrote   bool
}

func (w *deadlineWriter) WriteHeader(statusCode int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !*w.expired && !w.wrote {
		w.wrote = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *deadlineWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if *w.expired {
		return 0, http.ErrHandlerTimeout
	}
	if !w.wrote {
		w.wrote = true
		w.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}
