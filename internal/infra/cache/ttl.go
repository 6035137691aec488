package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL memoizes keyed computations for a fixed duration. Expiry is lazy: an
// entry is stale once now-storedAt >= ttl and is only noticed on read.
// Overlapping computations for the same key are coalesced so at most one is
// in flight; errors are shared with the coalesced waiters but never stored.
// A MaxEntries bound (optional) evicts the oldest entry once exceeded.
type TTL[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	flights    singleflight.Group
	ttl        time.Duration
	maxEntries int
}

// NewTTL creates a cache with the given ttl. maxEntries <= 0 leaves the
// cache unbounded.
func NewTTL[V any](ttl time.Duration, maxEntries int) *TTL[V] {
	return &TTL[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// GetOrCompute returns the cached value for key when fresh, otherwise runs
// compute once (coalescing concurrent callers) and stores its result. The
// second return reports whether the value was served from the cache.
func (c *TTL[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, bool, error) {
	if value, ok := c.lookup(key); ok {
		return value, true, nil
	}

	result, err, _ := c.flights.Do(key, func() (any, error) {
		// A finished flight may have stored the value between our miss and
		// acquiring leadership.
		if value, ok := c.lookup(key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return result.(V), false, nil
}

func (c *TTL[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Since(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) store(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, storedAt: time.Now()}
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *TTL[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest removes the oldest entry (must be called with lock held).
func (c *TTL[V]) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.storedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
