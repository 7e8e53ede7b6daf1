// Package cache holds encoded API responses for a short time so that repeated
// identical queries are answered without another upstream round trip.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays valid.
const DefaultTTL = 5 * time.Minute

// Entry is one cached payload.
type Entry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
}

// Stats reports cache size and hit counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	// TTLSeconds is the configured entry lifetime.
	TTLSeconds int `json:"ttlSeconds"`
}

// Cache is an in-memory TTL cache. Expired entries are ignored on read and
// replaced on the next Put for the same key; nothing is evicted otherwise.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]Entry
	hits    int64
	misses  int64
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the given TTL (DefaultTTL if ttl <= 0).
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key joins the significant request parameters into a cache key. Parts are
// trimmed and quoted so that no two distinct part lists share a key. Case is
// kept; callers fold parameters that are case-insensitive.
func Key(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = strconv.Quote(strings.TrimSpace(p))
	}
	return strings.Join(quoted, "|")
}

// Get returns the payload for key if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.StoredAt) >= c.ttl {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.Payload, true
}

// Put stores payload under key, overwriting any previous entry.
func (c *Cache) Put(key string, payload []byte) {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Key: key, Payload: stored, StoredAt: c.now()}
}

// Len returns the number of stored entries, including stale ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    len(c.entries),
		Hits:       c.hits,
		Misses:     c.misses,
		TTLSeconds: int(c.ttl / time.Second),
	}
}
