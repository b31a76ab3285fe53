package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryCache(t *testing.T, cfg Config) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(cfg)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, 5*time.Second, cfg.DefaultTTL)
	assert.Equal(t, "hld", cfg.Prefix)
	assert.Equal(t, int64(16*1024*1024), cfg.MaxMemory)
	assert.Equal(t, 1000, cfg.MaxItems)
}

func TestNew(t *testing.T) {
	t.Run("memory cache", func(t *testing.T) {
		store, err := New(DefaultConfig())
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*MemoryCache)
		assert.True(t, ok)
	})

	t.Run("empty type defaults to memory", func(t *testing.T) {
		store, err := New(Config{})
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*MemoryCache)
		assert.True(t, ok)
	})

	t.Run("redis cache", func(t *testing.T) {
		store, err := New(Config{Type: "redis", URL: "redis://localhost:6379"})
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*RedisCache)
		assert.True(t, ok)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := New(Config{Type: "memcached"})
		assert.EqualError(t, err, "unsupported cache type: memcached")
	})
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t, Config{DefaultTTL: time.Minute})

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte(`{"status":"ok"}`)
	require.NoError(t, c.Set(ctx, "health", value, 0))
	value[0] = 'X'

	got, err := c.Get(ctx, "health")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, string(got), "stored value must be a copy")

	got[0] = 'Y'
	again, _ := c.Get(ctx, "health")
	assert.Equal(t, `{"status":"ok"}`, string(again), "returned value must be a copy")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Keys)
	assert.Equal(t, int64(len(value)), stats.MemoryUsed)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestMemoryCache(t, Config{DefaultTTL: time.Second})
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))

	now = now.Add(2 * time.Second)

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)

	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))
	now = now.Add(2 * time.Second)
	c.Cleanup()
	assert.Equal(t, int64(1), c.Stats().Keys)
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()

	t.Run("max items evicts least recently used", func(t *testing.T) {
		c := newTestMemoryCache(t, Config{MaxItems: 2})

		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		_, _ = c.Get(ctx, "a")
		require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

		_, err := c.Get(ctx, "b")
		assert.ErrorIs(t, err, ErrCacheMiss)
		_, err = c.Get(ctx, "a")
		assert.NoError(t, err)
		_, err = c.Get(ctx, "c")
		assert.NoError(t, err)
	})

	t.Run("max memory", func(t *testing.T) {
		c := newTestMemoryCache(t, Config{MaxMemory: 10})

		require.NoError(t, c.Set(ctx, "a", []byte("12345"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("12345"), 0))
		require.NoError(t, c.Set(ctx, "c", []byte("123"), 0))

		_, err := c.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Equal(t, int64(8), c.Stats().MemoryUsed)
	})

	t.Run("overwrite keeps accounting", func(t *testing.T) {
		c := newTestMemoryCache(t, Config{})

		require.NoError(t, c.Set(ctx, "a", []byte("12345"), 0))
		require.NoError(t, c.Set(ctx, "a", []byte("12"), 0))

		stats := c.Stats()
		assert.Equal(t, int64(1), stats.Keys)
		assert.Equal(t, int64(2), stats.MemoryUsed)
	})
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t, Config{})

	for _, key := range []string{"GET /sessions", "GET /sessions/s-1", "GET /health"} {
		require.NoError(t, c.Set(ctx, key, []byte("x"), 0))
	}

	require.NoError(t, c.Delete(ctx, "GET /health"))
	require.NoError(t, c.DeletePrefix(ctx, "GET /sessions"))

	assert.Zero(t, c.Stats().Keys)
	assert.Zero(t, c.Stats().MemoryUsed)
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(Config{})
	require.NoError(t, c.Set(context.Background(), "a", []byte("1"), 0))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Zero(t, c.Stats().Keys)
	assert.NoError(t, c.Health(context.Background()))
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := newTestMemoryCache(t, Config{MaxItems: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%80)
				_ = c.Set(ctx, key, []byte(key), 0)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Keys, int64(50))
}
