package fetcher

import (
	"fmt"
	"time"
)

// FetchConfig holds the configuration for origin fetching.
//
// Security settings:
//   - DenyPrivateIPs: Prevents SSRF attacks by blocking private IP addresses
//   - MaxBodySize: Prevents memory exhaustion from oversized responses
//   - MaxRedirects: Prevents infinite redirect loops
//
// Rate shaping:
//   - MinGap: minimum interval between any two outbound request starts
//   - DiscoveryMinGap: additional spacing applied to discovery probes
type FetchConfig struct {
	// Timeout is the connect+read deadline for a standard page or feed fetch.
	// Default: 10s
	Timeout time.Duration

	// DiscoveryTimeout is the shorter deadline used for discovery probes.
	// Default: 5s
	DiscoveryTimeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// Responses exceeding this limit are rejected to prevent memory exhaustion.
	// Default: 10485760 (10MiB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is revalidated for security (SSRF check).
	// Default: 5
	MaxRedirects int

	// MinGap is the minimum interval between outbound request starts.
	// Default: 100ms
	MinGap time.Duration

	// DiscoveryMinGap is the minimum interval between discovery probe starts.
	// Default: 200ms
	DiscoveryMinGap time.Duration

	// UserAgent overrides the rotating built-in browser identities when set.
	UserAgent string

	// DenyPrivateIPs controls whether URLs resolving to private addresses are
	// rejected before any I/O. Should always be true in production; tests
	// targeting httptest servers disable it.
	DenyPrivateIPs bool
}

// DefaultConfig returns the production defaults for origin fetching.
func DefaultConfig() FetchConfig {
	return FetchConfig{
		Timeout:          10 * time.Second,
		DiscoveryTimeout: 5 * time.Second,
		MaxBodySize:      10 * 1024 * 1024,
		MaxRedirects:     5,
		MinGap:           100 * time.Millisecond,
		DiscoveryMinGap:  200 * time.Millisecond,
		DenyPrivateIPs:   true,
	}
}

// Validate checks if the configuration values are valid and safe.
func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("discovery timeout must be positive, got %v", c.DiscoveryTimeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	if c.MinGap < 0 || c.DiscoveryMinGap < 0 {
		return fmt.Errorf("rate gaps must be non-negative")
	}

	return nil
}
