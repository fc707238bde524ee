//go:build integration

package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	n, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, &config.RedisConfig{Host: host, Port: n})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), &config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.ErrorContains(t, err, "127.0.0.1:1")
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "")
	const key = "invoice:create:acme:9a41"

	claimed, err := store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	ttl, err := client.TTL(ctx, "idempotency:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	held, err := store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, store.Release(ctx, key))
	held, err = store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRedisLookupCache(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()
	c := NewRedisLookupCache(client, WithKeyPrefix("test:lookup:"), WithCacheLogger(zaptest.NewLogger(t)))

	type item struct {
		SKU       string `json:"sku"`
		Available int64  `json:"available"`
	}
	require.NoError(t, c.Set(ctx, "items:acme:BEAM-01", item{"BEAM-01", 4}, 0))
	require.NoError(t, c.Set(ctx, "items:acme:BOLT-10", item{"BOLT-10", 120}, 0))
	require.NoError(t, c.Set(ctx, "clients:acme:1", item{"n/a", 0}, time.Minute))

	var got item
	found, err := c.Get(ctx, "items:acme:BEAM-01", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, item{"BEAM-01", 4}, got)

	ttl, err := client.TTL(ctx, "test:lookup:items:acme:BEAM-01").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, client.Set(ctx, "test:lookup:items:acme:BROKEN", "{not json", 0).Err())
	found, err = c.Get(ctx, "items:acme:BROKEN", &got)
	require.NoError(t, err)
	assert.False(t, found)
	exists, _ := client.Exists(ctx, "test:lookup:items:acme:BROKEN").Result()
	assert.Zero(t, exists, "undecodable entries are dropped")

	require.NoError(t, c.DeletePrefix(ctx, "items:acme:"))
	found, err = c.Get(ctx, "items:acme:BOLT-10", &got)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = c.Get(ctx, "clients:acme:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisCacheInvalidator_SkipsOwnMessages(t *testing.T) {
	client := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewRedisCacheInvalidator(client, "node-a", zaptest.NewLogger(t))
	remote := NewRedisCacheInvalidator(client, "node-b", zaptest.NewLogger(t))

	received := make(chan InvalidationMessage, 4)
	done := make(chan error, 1)
	go func() {
		done <- local.Subscribe(ctx, func(m InvalidationMessage) { received <- m })
	}()

	// wait for the subscription before publishing
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, defaultInvalidationChannel).Result()
		return err == nil && n[defaultInvalidationChannel] == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, local.Publish(ctx, "items:acme:"))
	require.NoError(t, remote.Publish(ctx, "clients:acme:"))

	select {
	case m := <-received:
		assert.Equal(t, "clients:acme:", m.Prefix)
		assert.Equal(t, "node-b", m.Origin)
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation received")
	}

	require.NoError(t, local.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not stop")
	}
	assert.Empty(t, received)
}

func TestRedisTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	client := newRedis(t)
	bl := auth.NewRedisTokenBlacklist(client)

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-logout", time.Minute))
	require.NoError(t, bl.AddToBlacklist(ctx, "jti-expired", 0))

	revoked, err := bl.IsBlacklisted(ctx, "jti-logout")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsBlacklisted(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked, "a token already past expiry is not stored")

	ttl, err := client.TTL(ctx, "token:blacklist:jti-logout").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)
}
