package crack

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanRangeFindsKnownUID(t *testing.T) {
	target := ChecksumUID(123456)
	matches := scanRange(target, 0, 200_000)
	require.Contains(t, matches, uint64(123456))

	// forward scan keeps discovery order ascending
	for i := 1; i < len(matches); i++ {
		require.Less(t, matches[i-1], matches[i])
	}
}

func TestScanRangeEmpty(t *testing.T) {
	require.Empty(t, scanRange(0xdeadbeef, 500, 500))
}

func TestClampWorkers(t *testing.T) {
	require.Equal(t, 1, clampWorkers(-3))
	require.Equal(t, 1, clampWorkers(1))
	require.Equal(t, 8, clampWorkers(8))
	require.Equal(t, MaxWorkers, clampWorkers(1000))

	auto := clampWorkers(0)
	require.GreaterOrEqual(t, auto, 1)
	require.LessOrEqual(t, auto, MaxWorkers)
	if runtime.NumCPU() <= MaxWorkers {
		require.Equal(t, runtime.NumCPU(), auto)
	}
}

func TestSearchReturnsMinimum(t *testing.T) {
	if testing.Short() {
		t.Skip("full-band scan")
	}
	target := ChecksumUID(5)
	require.Equal(t, uint64(5), Search(target, 0))

	all := SearchAll(target, 0)
	require.Contains(t, all, uint64(5))
}
