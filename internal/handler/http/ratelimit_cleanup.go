package http

import (
	"context"
	"log/slog"
	"time"

	"pagefeed/pkg/config"
)

// StartRateLimitCleanup starts a background goroutine that periodically
// removes expired timestamp windows from the RateLimiter.
//
// This prevents memory growth from one-off client IPs: their request
// timestamps stay in the map after the window passes and are never touched
// again by the request path.
//
// The cleanup runs in a loop with the specified interval and stops gracefully
// when the context is cancelled (e.g., during server shutdown).
func StartRateLimitCleanup(ctx context.Context, limiter *RateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("rate limit cleanup started",
		slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit cleanup stopped")
			return

		case <-ticker.C:
			removed := limiter.CleanupExpired()

			slog.Debug("rate limit cleanup completed",
				slog.Int("keys_removed", removed))
		}
	}
}

// DefaultCleanupInterval is the default cleanup interval if not specified.
const DefaultCleanupInterval = 5 * time.Minute

// LoadCleanupInterval reads the cleanup interval from the
// RATELIMIT_CLEANUP_INTERVAL environment variable (e.g., "5m", "10m").
// Invalid or missing values fall back to the default instead of failing.
func LoadCleanupInterval() time.Duration {
	return config.GetEnvDuration("RATELIMIT_CLEANUP_INTERVAL", DefaultCleanupInterval)
}
