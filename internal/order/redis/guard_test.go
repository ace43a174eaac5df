package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ms-storefront/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestGuard_RejectsSecondSubmission(t *testing.T) {
	client, _ := setupTestRedis(t)
	g := NewGuard(client, 10*time.Second, logger.NewDiscard())
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "01112223344:ps5:full", "ORD-1-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "01112223344:ps5:full", "ORD-2-2")
	require.NoError(t, err)
	assert.False(t, ok)

	holder, err := g.Holder(ctx, "01112223344:ps5:full")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-1", holder)

	// different tier is a different selection
	ok, err = g.Acquire(ctx, "01112223344:ps5:primary", "ORD-3-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewGuard(client, 5*time.Second, logger.NewDiscard())
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "k", "ORD-1-1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	ok, err = g.Acquire(ctx, "k", "ORD-2-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_ReleaseOnlyByOwner(t *testing.T) {
	client, _ := setupTestRedis(t)
	g := NewGuard(client, time.Minute, logger.NewDiscard())
	ctx := context.Background()

	_, err := g.Acquire(ctx, "k", "ORD-1-1")
	require.NoError(t, err)

	require.NoError(t, g.Release(ctx, "k", "ORD-other"))
	holder, err := g.Holder(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-1", holder)

	require.NoError(t, g.Release(ctx, "k", "ORD-1-1"))
	holder, err = g.Holder(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, holder)

	// releasing a free key is a no-op
	assert.NoError(t, g.Release(ctx, "k", "ORD-1-1"))
}

func TestGuard_ConcurrentAcquireHasOneWinner(t *testing.T) {
	client, _ := setupTestRedis(t)
	g := NewGuard(client, time.Minute, logger.NewDiscard())

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := g.Acquire(context.Background(), "race", "ORD-"+string(rune('a'+n)))
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestGuard_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	g := NewGuard(client, time.Minute, logger.NewDiscard())
	mr.Close()

	_, err = g.Acquire(context.Background(), "k", "ORD-1-1")
	assert.Error(t, err)
}

// TestGuardIntegration runs against a real Redis container
func TestGuardIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	g := NewGuard(client, time.Minute, logger.NewDiscard())

	ok, err := g.Acquire(ctx, "01112223344:pc:full", "ORD-1-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "01112223344:pc:full", "ORD-2-2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "01112223344:pc:full", "ORD-1-1"))
	ok, err = g.Acquire(ctx, "01112223344:pc:full", "ORD-2-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := Connect(mr.Addr(), logger.NewDiscard())
	require.NoError(t, err)
	defer client.Close()
	assert.True(t, mr.Exists(keyPrefix+"healthcheck"))

	mr.Close()
	_, err = Connect(mr.Addr(), logger.NewDiscard())
	assert.Error(t, err)
}
