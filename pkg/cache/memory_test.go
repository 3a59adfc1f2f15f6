package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(8, time.Hour)
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_PerEntryExpiry(t *testing.T) {
	c := NewMemoryCache(8, time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache(8, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return err == ErrMiss
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(2, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), i, 0))
	}
	assert.Equal(t, 2, c.Len())

	_, err := c.Get(ctx, "k0")
	assert.ErrorIs(t, err, ErrMiss)
	v, err := c.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
