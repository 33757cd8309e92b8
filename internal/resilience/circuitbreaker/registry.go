package circuitbreaker

import (
	"sync"

	"github.com/sony/gobreaker"
)

// maxRegistryEntries bounds the breaker map; closed breakers are discarded
// first when the bound is exceeded.
const maxRegistryEntries = 4096

// Registry keeps one circuit breaker per key (here, per absolute URL).
// Breakers are created lazily on first use and share a single config.
// Safe for concurrent use; per-breaker state transitions are serialized by
// gobreaker's own locking.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	cfg      Config
}

// NewRegistry creates a registry whose breakers all use cfg. The cfg.Name is
// used as a prefix; each breaker is named "<prefix>:<key>".
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg,
	}
}

// For returns the breaker for the given key, creating it if necessary.
func (r *Registry) For(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[key]; ok {
		return cb
	}

	if len(r.breakers) >= maxRegistryEntries {
		r.evictClosedLocked()
	}

	cfg := r.cfg
	cfg.Name = r.cfg.Name + ":" + key
	cb := New(cfg)
	r.breakers[key] = cb
	return cb
}

// evictClosedLocked drops breakers in the closed state. A closed breaker
// carries no protective state worth keeping; an open one must survive so its
// block window holds.
func (r *Registry) evictClosedLocked() {
	for key, cb := range r.breakers {
		if cb.State() == gobreaker.StateClosed {
			delete(r.breakers, key)
		}
	}
}

// Len returns the number of tracked breakers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.breakers)
}

// OpenCount returns the number of breakers currently in the open state.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := 0
	for _, cb := range r.breakers {
		if cb.IsOpen() {
			open++
		}
	}
	return open
}
