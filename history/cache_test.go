package history

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentCacheRoundTrip(t *testing.T) {
	cache, err := NewSegmentCache(t.TempDir())
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("danmaku segment payload"), 128)
	require.NoError(t, cache.Store(35268920394, "2024-01-15", payload))

	got, ok := cache.Load(35268920394, "2024-01-15")
	require.True(t, ok)
	require.Equal(t, payload, got)
}

func TestSegmentCacheMiss(t *testing.T) {
	cache, err := NewSegmentCache(t.TempDir())
	require.NoError(t, err)

	_, ok := cache.Load(1, "2024-01-01")
	require.False(t, ok)
}

func TestSegmentCacheCorruptEntry(t *testing.T) {
	cache, err := NewSegmentCache(t.TempDir())
	require.NoError(t, err)

	// not a snappy stream; Load must fall back to a miss
	require.NoError(t, os.WriteFile(cache.path(1, "2024-01-01"), []byte("garbage"), 0644))
	_, ok := cache.Load(1, "2024-01-01")
	require.False(t, ok)
}
