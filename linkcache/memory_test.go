package linkcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceceprawiro/sso/linkcache"
)

func TestMemoryPutGet(t *testing.T) {
	cache := linkcache.NewMemory()
	ctx := t.Context()

	require.NoError(t, cache.Put(ctx, "broker1-tok-sum", "session-a", time.Hour))

	ref, err := cache.Get(ctx, "broker1-tok-sum")
	require.NoError(t, err)
	assert.Equal(t, "session-a", ref)
}

func TestMemoryMiss(t *testing.T) {
	cache := linkcache.NewMemory()

	_, err := cache.Get(t.Context(), "never-attached")
	assert.ErrorIs(t, err, linkcache.ErrNotFound)
}

func TestMemoryOverwrite(t *testing.T) {
	cache := linkcache.NewMemory()
	ctx := t.Context()

	require.NoError(t, cache.Put(ctx, "sid", "session-a", time.Hour))
	require.NoError(t, cache.Put(ctx, "sid", "session-b", time.Hour))

	ref, err := cache.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "session-b", ref)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryExpiry(t *testing.T) {
	cache := linkcache.NewMemory()
	ctx := t.Context()

	require.NoError(t, cache.Put(ctx, "sid", "session-a", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := cache.Get(ctx, "sid")
	assert.ErrorIs(t, err, linkcache.ErrNotFound)
	assert.Equal(t, 0, cache.Len())
}
