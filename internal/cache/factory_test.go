package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/cache"
	"github.com/fyrsmithlabs/docqd/internal/config"
)

var (
	_ cache.Cache = (*cache.MemoryCache)(nil)
	_ cache.Cache = (*cache.RedisCache)(nil)
	_ cache.Cache = (*cache.NoopCache)(nil)
)

func TestNewCache_Memory(t *testing.T) {
	c, err := cache.NewCache(&config.CacheConfig{Provider: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
}

func TestNewCache_DefaultsToMemory(t *testing.T) {
	c, err := cache.NewCache(&config.CacheConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
}

func TestNewCache_None(t *testing.T) {
	c, err := cache.NewCache(&config.CacheConfig{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.NoopCache{}, c)
}

func TestNewCache_UnreachableRedisDegradesToNoop(t *testing.T) {
	cfg := &config.CacheConfig{
		Provider: "redis",
		Redis:    config.RedisCacheConfig{Addr: "127.0.0.1:1"},
	}

	c, err := cache.NewCache(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.NoopCache{}, c)
}

func TestNewCache_UnknownProvider(t *testing.T) {
	_, err := cache.NewCache(&config.CacheConfig{Provider: "memcached"}, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "unsupported cache provider")
}

func TestNoopCache_NeverHits(t *testing.T) {
	c := cache.NewNoopCache()
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "key", "value", time.Minute))

	value, ok, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
	require.NoError(t, c.Close())
}

func TestNewRedisCache_RequiresAddr(t *testing.T) {
	_, err := cache.NewRedisCache(&config.RedisCacheConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrInvalidConfig)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := cache.NewRedisCache(&config.RedisCacheConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis")
}
