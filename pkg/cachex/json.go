package cachex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SetJSON stores v encoded as JSON under key.
func SetJSON[T any](ctx context.Context, c Cache, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return c.Set(ctx, key, string(raw), ttl)
}

// GetJSON loads and decodes the JSON value under key. A missing key returns
// the zero value with ok=false.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var v T
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return v, true, nil
}
