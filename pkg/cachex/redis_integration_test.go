//go:build integration

package cachex_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisCache_Container(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	c, err := cachex.New(ctx, cachex.Options{Kind: cachex.KindRedis, RedisURL: endpoint})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	n, err := c.Incr(ctx, "login:retry:+10000000000", 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	ttl, err := c.TTL(ctx, "login:retry:+10000000000")
	require.NoError(t, err)
	require.Greater(t, ttl, int64(890))
}
