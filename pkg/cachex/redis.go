package cachex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the remote Cache backend. Consistency is whatever the Redis
// deployment provides; Incr is a MULTI/EXEC of INCR and EXPIRE.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client. The caller keeps ownership of its
// configuration; Close closes it.
func NewRedis(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisFromURL dials the redis:// URL and verifies the connection.
func NewRedisFromURL(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cachex: invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (c *RedisCache) TTL(ctx context.Context, key string) (int64, error) {
	// PTTL keeps sub-second precision so the value can be rounded up like the
	// in-process backends do.
	d, err := c.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case d == -2:
		return TTLMissing, nil
	case d == -1:
		return TTLPersistent, nil
	case d <= 0:
		return TTLMissing, nil
	default:
		return ceilSeconds(d), nil
	}
}

func (c *RedisCache) Remove(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (c *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		} else {
			p.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		if isNotInteger(err) {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, key)
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return incr.Val(), nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Close() error { return c.client.Close() }

func isNotInteger(err error) bool {
	return strings.Contains(err.Error(), "not an integer")
}
