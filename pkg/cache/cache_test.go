package cache

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name  string `json:"name"`
	Sound bool   `json:"sound"`
}

func newMemory(t *testing.T, opts ...MemoryOption) (*MemoryCache, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	mc := NewMemoryCache(append([]MemoryOption{WithMemoryClock(clk)}, opts...)...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc, clk
}

func TestMemoryCache_RoundTripsStructs(t *testing.T) {
	mc, _ := newMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "settings:default", profile{Name: "default", Sound: true}, 0))

	var got profile
	require.NoError(t, mc.Get(ctx, "settings:default", &got))
	assert.Equal(t, profile{Name: "default", Sound: true}, got)

	var raw string
	require.NoError(t, mc.Get(ctx, "settings:default", &raw))
	assert.JSONEq(t, `{"name":"default","sound":true}`, raw)
}

func TestMemoryCache_Miss(t *testing.T) {
	mc, _ := newMemory(t)
	var got profile
	assert.ErrorIs(t, mc.Get(context.Background(), "nope", &got), ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, clk := newMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Add(2 * time.Minute)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	ok, err = mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc, clk := newMemory(t, WithMemoryMaxSize(2))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	clk.Add(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	clk.Add(time.Millisecond)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	clk.Add(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &s))
	assert.NoError(t, mc.Get(ctx, "c", &s))
}

func TestMemoryCache_OverwriteDoesNotEvict(t *testing.T) {
	mc, _ := newMemory(t, WithMemoryMaxSize(1))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "a", "2", 0))

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	assert.Equal(t, "2", s)
}

func TestMemoryCache_Delete(t *testing.T) {
	mc, _ := newMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Delete(ctx, "a", "missing"))

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "a", &s), ErrCacheMiss)
}

func TestRedisCache_WrapKey(t *testing.T) {
	c := &RedisCache{prefix: "cryptonotify"}
	assert.Equal(t, "cryptonotify:settings:default", c.wrapKey("settings:default"))
	assert.Equal(t, []string{"cryptonotify:a", "cryptonotify:b"}, c.wrapKeys("a", "b"))

	bare := &RedisCache{}
	assert.Equal(t, "a", bare.wrapKey("a"))
}

func TestMemoryCache_SweepsOnCleanupInterval(t *testing.T) {
	mc, clk := newMemory(t, WithMemoryCleanup(time.Minute))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "short", "1", 30*time.Second))
	require.NoError(t, mc.Set(ctx, "long", "2", time.Hour))
	require.Equal(t, 2, mc.Len())

	clk.Add(time.Minute)
	assert.Eventually(t, func() bool { return mc.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryConfig_IgnoresNonPositiveValues(t *testing.T) {
	cfg := MemoryConfig{MaxSize: 1000, CleanupInterval: 5 * time.Minute}
	WithMemoryCleanup(0)(&cfg)
	WithMemoryMaxSize(-1)(&cfg)
	assert.Equal(t, 1000, cfg.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
}

func TestWithRedisPool(t *testing.T) {
	var cfg RedisConfig
	WithRedisPool(25, 4, 3*time.Second)(&cfg)
	assert.Equal(t, 25, cfg.PoolSize)
	assert.Equal(t, 4, cfg.MinIdleConns)
	assert.Equal(t, 3*time.Second, cfg.PoolTimeout)
}
