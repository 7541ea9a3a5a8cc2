package cache

import (
	"sync"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/message"
)

// Observer receives cache events for metrics. Implementations must be safe for
// concurrent use; metrics.CacheMetrics satisfies it.
type Observer interface {
	RecordHit(cacheName string)
	RecordMiss(cacheName string)
	RecordEviction(cacheName, reason string)
	UpdateSize(cacheName string, size int)
}

// Reasons passed to Observer.RecordEviction.
const (
	// EvictExpired: the entry outlived its TTL and was found by a lookup.
	EvictExpired = "ttl"
	// EvictLRU: the cache was full and the entry was the least recently used.
	EvictLRU = "lru"
	// EvictInvalidated: the entry was removed with Delete, e.g. because its
	// file changed on disk.
	EvictInvalidated = "invalidated"
)

// Options configures a ResponseCache.
type Options struct {
	// Name labels the cache in metrics and logs (default "responses").
	Name string

	// TTL is how long an entry stays fresh after Set or Touch.
	// Zero means entries never expire.
	TTL time.Duration

	// MaxEntries bounds the cache. When full, Set evicts the least recently
	// accessed entry. Zero means unbounded.
	MaxEntries int

	// RefreshOnHit extends an entry's expiry on every hit, as Touch does.
	RefreshOnHit bool

	// Observer is notified of hits, misses, evictions and size changes.
	Observer Observer

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// entry is owned by the cache and never handed out; only its value is.
type entry struct {
	value          *message.Message
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// ResponseCache maps keys to previously built responses with TTL expiry.
//
// Expiry is lazy: a stale entry is removed when Get or Touch finds it. The
// optional MaxEntries bound evicts the least recently accessed entry so memory
// stays bounded even when stale keys are never read again.
//
// Cached messages are shared between callers. Clone a value before mutating or
// serializing it from more than one goroutine.
type ResponseCache struct {
	name         string
	ttl          time.Duration
	maxEntries   int
	refreshOnHit bool
	observer     Observer
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a ResponseCache.
func New(opts Options) *ResponseCache {
	if opts.Name == "" {
		opts.Name = "responses"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &ResponseCache{
		name:         opts.Name,
		ttl:          opts.TTL,
		maxEntries:   opts.MaxEntries,
		refreshOnHit: opts.RefreshOnHit,
		observer:     opts.Observer,
		now:          opts.Clock,
		entries:      make(map[string]*entry),
	}
}

// Name returns the cache label.
func (c *ResponseCache) Name() string {
	return c.name
}

// Get returns the value stored under key. A missing or expired key is a miss;
// an expired entry is deleted as a side effect.
func (c *ResponseCache) Get(key string) (*message.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if ok && c.expired(e, now) {
		c.removeLocked(key, EvictExpired)
		ok = false
	}

	if !ok {
		c.misses++
		if c.observer != nil {
			c.observer.RecordMiss(c.name)
		}
		return nil, false
	}

	e.lastAccessedAt = now
	if c.refreshOnHit && c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}

	c.hits++
	if c.observer != nil {
		c.observer.RecordHit(c.name)
	}
	return e.value, true
}

// Set stores value under key with a fresh expiry, overwriting any previous
// entry. If the cache is full the least recently accessed entry is evicted.
func (c *ResponseCache) Set(key string, value *message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	now := c.now()
	c.entries[key] = &entry{
		value:          value,
		expiresAt:      c.expiry(now),
		lastAccessedAt: now,
	}
	c.reportSize()
}

// Touch refreshes the expiry of key. It returns false when key is absent or
// already expired.
func (c *ResponseCache) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(e, now) {
		c.removeLocked(key, EvictExpired)
		return false
	}

	e.expiresAt = c.expiry(now)
	e.lastAccessedAt = now
	return true
}

// Delete removes key and reports whether it was present. The removal is
// reported as EvictInvalidated.
func (c *ResponseCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.removeLocked(key, EvictInvalidated)
	return true
}

// Len returns the number of stored entries, including stale ones not yet
// collected.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
}

func (c *ResponseCache) expiry(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

func (c *ResponseCache) expired(e *entry, now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// removeLocked deletes key and counts it as an eviction for reason. Must be
// called with mu held.
func (c *ResponseCache) removeLocked(key, reason string) {
	delete(c.entries, key)
	c.evictions++
	if c.observer != nil {
		c.observer.RecordEviction(c.name, reason)
	}
	c.reportSize()
}

// evictLRU removes the least recently accessed entry. Must be called with mu held.
func (c *ResponseCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	found := false

	for key, e := range c.entries {
		if !found || e.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessedAt
			found = true
		}
	}

	if found {
		c.removeLocked(oldestKey, EvictLRU)
	}
}

func (c *ResponseCache) reportSize() {
	if c.observer != nil {
		c.observer.UpdateSize(c.name, len(c.entries))
	}
}
