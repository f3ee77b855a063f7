package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "v1", time.Minute))
	require.NoError(t, cache.Set(ctx, "forever", "v2", 0))

	got, ok := cache.Get(ctx, "short")
	assert.True(t, ok)
	assert.Equal(t, "v1", got)

	clock = clock.Add(2 * time.Minute)

	_, ok = cache.Get(ctx, "short")
	assert.False(t, ok)
	got, ok = cache.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "v2", got)

	_, ok = cache.Get(ctx, "unknown")
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Len())
}
