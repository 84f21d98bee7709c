// Package cache provides an in-memory TTL cache for computed analytics.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is used by Set when the cache was built without a TTL.
const DefaultTTL = 5 * time.Minute

// Clock returns the current time. Tests swap it to control expiry.
type Clock func() time.Time

// Entry is a cached value with the time it was stored and its lifetime.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
	TTL       time.Duration
}

func (e Entry[T]) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Stats reports cache occupancy and counters since creation or the last
// Clear.
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Cache is a map of keyed entries that expire after their TTL.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	ttl     time.Duration
	now     Clock

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock Clock
}

// WithTTL sets the default TTL used by Set.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{ttl: DefaultTTL, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		entries: make(map[string]Entry[T]),
		ttl:     o.ttl,
		now:     o.clock,
	}
}

// TTL returns the default TTL.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value under key if it has not expired. An expired entry
// is evicted and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return zero, false
	}

	c.hits++
	return entry.Data, true
}

// Set stores v under key with the default TTL.
func (c *Cache[T]) Set(key string, v T) {
	c.SetWithTTL(key, v, c.ttl)
}

// SetWithTTL stores v under key with its own TTL, replacing any entry.
func (c *Cache[T]) SetWithTTL(key string, v T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[T]{Data: v, Timestamp: c.now(), TTL: ttl}
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteFunc removes every entry whose key satisfies pred and returns how
// many were removed.
func (c *Cache[T]) DeleteFunc(pred func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if pred(key) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// DeleteAccount removes every entry cached for account.
func (c *Cache[T]) DeleteAccount(account string) int {
	return c.DeleteFunc(func(key string) bool {
		parts := SplitKey(key)
		return len(parts) == 3 && parts[1] == account
	})
}

// Clear empties the cache and resets its counters.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry[T])
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache[T]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			n++
		}
	}
	c.evictions += uint64(n)
	return n
}

// Len returns the number of entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Key builds the "metric:account:signature" key of a cached computation.
// Colons inside segments are escaped so keys stay unambiguous.
func Key(metric, account, signature string) string {
	return escape(metric) + ":" + escape(account) + ":" + escape(signature)
}

// SplitKey reverses Key, returning the unescaped segments of key.
func SplitKey(key string) []string {
	var parts []string
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch ch := key[i]; {
		case ch == '\\' && i+1 < len(key):
			i++
			b.WriteByte(key[i])
		case ch == ':':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	return append(parts, b.String())
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

func escape(s string) string {
	return keyEscaper.Replace(s)
}
