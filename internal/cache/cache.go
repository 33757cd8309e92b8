// Package cache holds assembled feed bytes keyed by page URL and options.
// It is process-local and volatile: entries expire after a TTL, a soft
// capacity cap evicts the oldest insertions, and concurrent misses for one
// key are coalesced into a single producer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"pagefeed/internal/domain/entity"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long assembled feeds stay servable.
	DefaultTTL = time.Hour

	// defaultCapacity is the soft entry cap; overflowing inserts evict the
	// oldest-inserted evictFraction of entries.
	defaultCapacity = 100

	evictFraction = 0.2
)

type cacheEntry struct {
	result     entity.FeedResult
	insertedAt time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries  int     `json:"entries"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hitRatio"`
}

// ResultCache caches assembled feed bytes. Safe for concurrent use.
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	capacity int
	hits     uint64
	misses   uint64
	group    singleflight.Group
	now      func() time.Time
}

// New creates a ResultCache. Non-positive ttl or capacity select the
// defaults.
func New(ttl time.Duration, capacity int) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ResultCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Key derives the cache key: 16 hex chars of the page-URL hash followed by
// 8 hex chars of the canonical-options hash. Absent options hash to the same
// suffix as explicitly zero ones.
func Key(normalizedPageURL string, opts entity.Options) string {
	return PagePrefix(normalizedPageURL) + optionsSuffix(opts)
}

// PagePrefix returns the 16-hex page-URL component of the key, shared by
// every options variant of one page.
func PagePrefix(normalizedPageURL string) string {
	sum := sha256.Sum256([]byte(normalizedPageURL))
	return hex.EncodeToString(sum[:])[:16]
}

func optionsSuffix(opts entity.Options) string {
	sum := sha256.Sum256([]byte(opts.Canonical()))
	return hex.EncodeToString(sum[:])[:8]
}

// Get returns the cached result for key when present and fresh. Expired
// entries are evicted lazily on read.
func (c *ResultCache) Get(key string) (entity.FeedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return entity.FeedResult{}, false
	}
	if c.now().Sub(entry.insertedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return entity.FeedResult{}, false
	}
	c.hits++
	return entry.result, true
}

// peek is Get without the hit/miss counters, for the double-check inside
// Produce. One uncached production counts exactly one miss.
func (c *ResultCache) peek(key string) (entity.FeedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.insertedAt) > c.ttl {
		return entity.FeedResult{}, false
	}
	return entry.result, true
}

// Put inserts a result, evicting the oldest-inserted fifth of the cache when
// the insert would overflow the capacity.
func (c *ResultCache) Put(key string, result entity.FeedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{result: result, insertedAt: c.now()}
}

// Produce returns the cached result for key, or runs produce to fill it.
// Concurrent misses for one key share a single producer; its failure
// propagates to every waiter. The producer keeps running on a detached
// context even when the triggering request goes away, so the work is not
// wasted when the client disconnects.
func (c *ResultCache) Produce(ctx context.Context, key string, produce func(context.Context) (entity.FeedResult, error)) (entity.FeedResult, error) {
	if result, ok := c.Get(key); ok {
		return result, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if result, ok := c.peek(key); ok {
			return result, nil
		}
		result, err := produce(detached)
		if err != nil {
			return entity.FeedResult{}, err
		}
		c.Put(key, result)
		return result, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return entity.FeedResult{}, res.Err
		}
		return res.Val.(entity.FeedResult), nil
	case <-ctx.Done():
		return entity.FeedResult{}, ctx.Err()
	}
}

// Clear empties the cache and resets the hit/miss counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.hits = 0
	c.misses = 0
}

// ClearByPage removes every options variant cached for the page URL.
// It returns the number of entries removed.
func (c *ResultCache) ClearByPage(normalizedPageURL string) int {
	prefix := PagePrefix(normalizedPageURL)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep removes every expired entry. Intended to run on a timer so idle
// entries do not linger until the next read.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.now().Sub(entry.insertedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats snapshots the counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRatio = float64(c.hits) / float64(total)
	}
	return s
}

// evictOldestLocked drops the oldest-inserted fifth of the entries.
// Caller holds the mutex.
func (c *ResultCache) evictOldestLocked() {
	n := int(float64(c.capacity) * evictFraction)
	if n < 1 {
		n = 1
	}

	type aged struct {
		key        string
		insertedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key, entry.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].insertedAt.Before(all[j].insertedAt) })

	for i := 0; i < n && i < len(all); i++ {
		delete(c.entries, all[i].key)
	}
}
