package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/pkg/cachex"
)

type throttleBackend struct {
	name  string
	cache cachex.Cache
	// advance moves the backend's clock. Nil for badger, which expires keys
	// on the wall clock.
	advance func(time.Duration)
}

func throttleBackends(t *testing.T) []throttleBackend {
	clk := newClock()
	mem := cachex.NewMemory(cachex.WithClock(clk.Now))
	t.Cleanup(func() { _ = mem.Close() })

	mr := miniredis.RunT(t)
	rc := cachex.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })

	bc, err := cachex.NewBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bc.Close() })

	return []throttleBackend{
		{name: "mem", cache: mem, advance: clk.Advance},
		{name: "redis", cache: rc, advance: mr.FastForward},
		{name: "badger", cache: bc},
	}
}

func TestLoginThrottle_CoolDown(t *testing.T) {
	ctx := context.Background()

	for _, b := range throttleBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			if b.advance == nil {
				t.Skip("backend clock cannot be advanced")
			}
			th := service.NewLoginThrottle(b.cache, service.ThrottleConfig{
				MaxAttempts: 3,
				Cooldown:    60 * time.Second,
			})
			const account = "+10000000000"

			for i := 1; i <= 3; i++ {
				n, err := th.Check(ctx, account)
				require.NoError(t, err)
				require.Equal(t, i-1, n)

				n, err = th.RecordFailure(ctx, account)
				require.NoError(t, err)
				require.Equal(t, i, n)
			}

			_, err := th.Check(ctx, account)
			require.ErrorIs(t, err, service.ErrTooManyAttempts)

			var retry *service.RetryAfterError
			require.True(t, errors.As(err, &retry))
			require.Greater(t, retry.Seconds(), int64(0))
			require.LessOrEqual(t, retry.Seconds(), int64(60))
			first := retry.Seconds()

			b.advance(20 * time.Second)
			_, err = th.Check(ctx, account)
			require.True(t, errors.As(err, &retry))
			require.Less(t, retry.Seconds(), first)
			require.Greater(t, retry.Seconds(), int64(0))

			// Cool-down over: the counter is still at the limit but the
			// account may try again.
			b.advance(41 * time.Second)
			n, err := th.Check(ctx, account)
			require.NoError(t, err)
			require.Equal(t, 3, n)
		})
	}
}

func TestLoginThrottle_Clear(t *testing.T) {
	ctx := context.Background()

	for _, b := range throttleBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			th := service.NewLoginThrottle(b.cache, service.ThrottleConfig{MaxAttempts: 2, Cooldown: time.Minute})

			for range 2 {
				_, err := th.RecordFailure(ctx, "acct")
				require.NoError(t, err)
			}
			_, err := th.Check(ctx, "acct")
			require.ErrorIs(t, err, service.ErrTooManyAttempts)

			require.NoError(t, th.Clear(ctx, "acct"))
			n, err := th.Check(ctx, "acct")
			require.NoError(t, err)
			require.Zero(t, n)

			// Other accounts are unaffected by each other.
			n, err = th.Check(ctx, "other")
			require.NoError(t, err)
			require.Zero(t, n)
		})
	}
}

func TestLoginThrottle_ConcurrentFailures(t *testing.T) {
	ctx := context.Background()
	const workers = 100

	for _, b := range throttleBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			th := service.NewLoginThrottle(b.cache, service.ThrottleConfig{
				MaxAttempts: workers + 1,
				Cooldown:    time.Minute,
			})

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := th.RecordFailure(ctx, "acct"); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			n, err := th.Check(ctx, "acct")
			require.NoError(t, err)
			require.Equal(t, workers, n)
		})
	}
}

func TestLoginThrottle_CounterExpires(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	cache := cachex.NewMemory(cachex.WithClock(clk.Now))

	th := service.NewLoginThrottle(cache, service.ThrottleConfig{
		MaxAttempts: 5,
		Cooldown:    time.Second,
		CounterTTL:  time.Minute,
	})

	_, err := th.RecordFailure(ctx, "acct")
	require.NoError(t, err)
	n, err := th.Check(ctx, "acct")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	clk.Advance(time.Minute + time.Second)
	n, err = th.Check(ctx, "acct")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLoginThrottle_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := cachex.NewMemory()
	th := service.NewLoginThrottle(cache, service.ThrottleConfig{})

	for range 10 {
		n, err := th.RecordFailure(ctx, "acct")
		require.NoError(t, err)
		require.Zero(t, n)
	}
	n, err := th.Check(ctx, "acct")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, cache.Len())
}

func TestLoginThrottle_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cachex.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { _ = rc.Close() })
	mr.Close()

	th := service.NewLoginThrottle(rc, service.ThrottleConfig{MaxAttempts: 3, Cooldown: time.Minute})

	_, err := th.Check(context.Background(), "acct")
	require.ErrorIs(t, err, cachex.ErrUnavailable)

	_, err = th.RecordFailure(context.Background(), "acct")
	require.ErrorIs(t, err, cachex.ErrUnavailable)
}
