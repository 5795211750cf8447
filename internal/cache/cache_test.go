//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-hub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	c, err := New(config.CacheConfig{TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestCache_SetGetExpire(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	*clock = clock.Add(2 * time.Minute)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	v, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCache_Remember(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]byte, error) {
		calls++
		return []byte("<urlset/>"), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Remember(ctx, "sitemap", load)
		require.NoError(t, err)
		assert.Equal(t, "<urlset/>", string(v))
	}
	assert.Equal(t, 1, calls)

	*clock = clock.Add(c.TTL())
	_, err := c.Remember(ctx, "sitemap", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCache_RememberDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.Remember(ctx, "k", func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCache_Purge(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("b"), time.Hour))

	*clock = clock.Add(time.Minute)
	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, err := c.Get(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), v)
}
