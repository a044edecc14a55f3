// Package cachex is a small key/value cache with per-key expiry. Every backend
// honours the same expiry rules so callers (the login throttle in particular)
// never need to know which one is configured.
package cachex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// TTL sentinels, matching the Redis TTL command.
const (
	// TTLMissing is returned by TTL when the key does not exist (or has expired).
	TTLMissing int64 = -2
	// TTLPersistent is returned by TTL when the key exists without an expiry.
	TTLPersistent int64 = -1
)

var (
	ErrUnavailable = errors.New("cachex: backend unavailable")
	ErrUnknownKind = errors.New("cachex: unknown cache kind")
	ErrNotInteger  = errors.New("cachex: value is not an integer")
	ErrClosed      = errors.New("cachex: cache closed")
)

// Cache is the capability every backend provides.
type Cache interface {
	// Set stores value under key, replacing any previous value. A ttl of 0
	// means the entry never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value under key. A missing or expired key is reported
	// with ok=false and a nil error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// TTL returns the remaining lifetime of key in whole seconds, rounded up
	// while the key is alive. See TTLMissing and TTLPersistent.
	TTL(ctx context.Context, key string) (int64, error)

	// Remove deletes key and reports whether it was present.
	Remove(ctx context.Context, key string) (bool, error)

	// Incr atomically adds one to the integer stored under key (a missing key
	// counts as 0), re-arms the expiry to ttl and returns the new value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Sweeper is implemented by backends that need expired entries evicted
// explicitly instead of relying on the store.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Kind is the closed set of supported backends.
type Kind string

const (
	KindMemory Kind = "mem"
	KindBadger Kind = "badger"
	KindRedis  Kind = "redis"
)

// ParseKind maps a configuration tag onto a Kind. Unknown tags are rejected
// here so a bad configuration fails at startup rather than on first use.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMemory, KindBadger, KindRedis:
		return k, nil
	case "memory":
		return KindMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string { return string(k) }

// Options selects and configures a backend.
type Options struct {
	Kind Kind

	// RedisURL is a redis:// URL, used when Kind is KindRedis.
	RedisURL string

	// BadgerDir is the on-disk location for KindBadger. Empty keeps the
	// database in memory.
	BadgerDir string
}

// New builds the backend named by opts.Kind.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Kind {
	case KindMemory:
		return NewMemory(), nil
	case KindBadger:
		return NewBadger(opts.BadgerDir)
	case KindRedis:
		return NewRedisFromURL(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(opts.Kind))
	}
}

// ceilSeconds converts a positive remaining lifetime to whole seconds,
// rounding up so a live key never reports 0.
func ceilSeconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
