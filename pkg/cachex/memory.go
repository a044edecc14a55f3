package cachex

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is an in-process Cache. A single mutex guards the map, which
// also makes Incr a true read-modify-write under concurrent callers.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
	closed  bool
}

// MemoryOption customises a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, mostly for tests that need to move time.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

func NewMemory(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.entries[key] = memEntry{value: value, expiresAt: c.expiry(ttl)}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", false, ErrClosed
	}
	e, ok := c.lookup(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) TTL(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}
	e, ok := c.lookup(key)
	if !ok {
		return TTLMissing, nil
	}
	if e.expiresAt.IsZero() {
		return TTLPersistent, nil
	}
	return ceilSeconds(e.expiresAt.Sub(c.now())), nil
}

func (c *MemoryCache) Remove(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}
	if _, ok := c.lookup(key); !ok {
		return false, nil
	}
	delete(c.entries, key)
	return true, nil
}

func (c *MemoryCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	var n int64
	if e, ok := c.lookup(key); ok {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, key)
		}
		n = v
	}
	n++
	c.entries[key] = memEntry{value: strconv.FormatInt(n, 10), expiresAt: c.expiry(ttl)}
	return n, nil
}

func (c *MemoryCache) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return nil
}

// Sweep evicts every expired entry and returns how many were dropped.
func (c *MemoryCache) Sweep(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries, expired ones included until they
// are swept or touched.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.entries = make(map[string]memEntry)
	return nil
}

// lookup returns a live entry, evicting it if it has expired. Callers hold mu.
func (c *MemoryCache) lookup(key string) (memEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return memEntry{}, false
	}
	return e, true
}

func (c *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}
