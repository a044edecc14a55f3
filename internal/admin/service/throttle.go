package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/backoffice/pkg/cachex"
)

const (
	keyLoginRetry    = "login:retry:"
	keyLoginRetryTTL = "login:retry_ttl:"

	DefaultCounterTTL = 15 * time.Minute
)

var ErrTooManyAttempts = errors.New("too_many_attempts")

// RetryAfterError is returned by LoginThrottle.Check while an account is
// cooling down. It matches ErrTooManyAttempts.
type RetryAfterError struct {
	Wait time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %d seconds", e.Seconds())
}

func (e *RetryAfterError) Is(target error) bool { return target == ErrTooManyAttempts }

// Seconds is the remaining cool-down in whole seconds.
func (e *RetryAfterError) Seconds() int64 { return int64(e.Wait / time.Second) }

type ThrottleConfig struct {
	// MaxAttempts is the number of failures that arms the cool-down. Zero
	// disables throttling.
	MaxAttempts int

	// Cooldown is how long an account is blocked once MaxAttempts is reached.
	Cooldown time.Duration

	// CounterTTL is how long failures accumulate before the counter resets.
	CounterTTL time.Duration
}

// LoginThrottle tracks failed logins per account. All state lives in the
// cache: a failure counter and a separate cool-down entry whose TTL is the
// remaining block time.
type LoginThrottle struct {
	cache cachex.Cache
	cfg   ThrottleConfig
}

func NewLoginThrottle(cache cachex.Cache, cfg ThrottleConfig) *LoginThrottle {
	if cfg.CounterTTL <= 0 {
		cfg.CounterTTL = DefaultCounterTTL
	}
	return &LoginThrottle{cache: cache, cfg: cfg}
}

func (t *LoginThrottle) enabled() bool { return t.cfg.MaxAttempts > 0 }

// Check returns the current failure count, or a *RetryAfterError when the
// account has reached the limit and its cool-down is still running.
func (t *LoginThrottle) Check(ctx context.Context, account string) (int, error) {
	if !t.enabled() {
		return 0, nil
	}

	n, err := t.count(ctx, account)
	if err != nil {
		return 0, err
	}
	if n < t.cfg.MaxAttempts {
		return n, nil
	}

	secs, err := t.cache.TTL(ctx, keyLoginRetryTTL+account)
	if err != nil {
		return n, fmt.Errorf("read cool-down: %w", err)
	}
	if secs > 0 {
		return n, &RetryAfterError{Wait: time.Duration(secs) * time.Second}
	}
	return n, nil
}

// RecordFailure bumps the failure counter and restarts the cool-down.
func (t *LoginThrottle) RecordFailure(ctx context.Context, account string) (int, error) {
	if !t.enabled() {
		return 0, nil
	}

	n, err := t.cache.Incr(ctx, keyLoginRetry+account, t.cfg.CounterTTL)
	if err != nil {
		return 0, fmt.Errorf("bump failure counter: %w", err)
	}
	if err := t.cache.Set(ctx, keyLoginRetryTTL+account, strconv.FormatInt(n, 10), t.cfg.Cooldown); err != nil {
		return int(n), fmt.Errorf("arm cool-down: %w", err)
	}
	return int(n), nil
}

// Clear drops the failure counter. The cool-down entry is left to expire; it
// has no effect while the counter is below the limit.
func (t *LoginThrottle) Clear(ctx context.Context, account string) error {
	if !t.enabled() {
		return nil
	}
	if _, err := t.cache.Remove(ctx, keyLoginRetry+account); err != nil {
		return fmt.Errorf("clear failure counter: %w", err)
	}
	return nil
}

func (t *LoginThrottle) count(ctx context.Context, account string) (int, error) {
	v, ok, err := t.cache.Get(ctx, keyLoginRetry+account)
	if err != nil {
		return 0, fmt.Errorf("read failure counter: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("read failure counter: %w", cachex.ErrNotInteger)
	}
	return n, nil
}
