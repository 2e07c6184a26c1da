package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/govsite-search/backend/internal/dedupe"
)

func TestCacheUnchangedHash(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.Unchanged("article:1", "h1"))

	cache.Remember("article:1", "h1")
	require.True(t, cache.Unchanged("article:1", "h1"))
	require.False(t, cache.Unchanged("article:1", "h2"))
	require.False(t, cache.Unchanged("speech:1", "h1"))
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := dedupe.NewCache(10, 20*time.Millisecond)
	cache.Remember("media:1", "h")
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.Unchanged("media:1", "h"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(1, time.Minute)
	cache.Remember("first", "a")
	cache.Remember("second", "b")

	require.False(t, cache.Unchanged("first", "a"))
	require.True(t, cache.Unchanged("second", "b"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheForget(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	cache.Remember("article:9", "h")
	cache.Forget("article:9")

	require.False(t, cache.Unchanged("article:9", "h"))
	require.Zero(t, cache.Len())
}

func TestCacheRememberUpdatesHash(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	cache.Remember("article:1", "old")
	cache.Remember("article:1", "new")

	require.True(t, cache.Unchanged("article:1", "new"))
	require.False(t, cache.Unchanged("article:1", "old"))
	require.Equal(t, 1, cache.Len())
}
