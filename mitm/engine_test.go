package mitm

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwangrwang31/bilitrace/crack"
)

// seededEngine builds an engine over a hand-packed table instead of the full
// 10^8-entry one, keeping the sweep itself intact.
func seededEngine(entries []uint64) *Engine {
	slices.Sort(entries)
	return &Engine{
		table:  &Table{entries: entries},
		shift8: zeroOperator(8),
		filter: NewFilter(nil),
	}
}

func TestEngineCrackFindsKnownUID(t *testing.T) {
	if testing.Short() {
		t.Skip("full prefix sweep")
	}

	pack := func(crc, low uint32) uint64 { return uint64(crc)<<32 | uint64(low) }
	// 0x2640627d is crc(pad8(40381311)), the low half the golden UID needs.
	// The second entry lies about its crc: the final verification step must
	// weed the assembled UID out.
	e := seededEngine([]uint64{
		pack(0x2640627d, 40381311),
		pack(0x2640627d, 99999999),
	})

	got := e.Crack(0x90a567c7)
	require.Contains(t, got, uint64(3546921440381311))
	require.NotContains(t, got, uint64(3546921499999999))
	require.True(t, slices.IsSorted(got))

	for _, uid := range got {
		require.Equal(t, uint32(0x90a567c7), crack.ChecksumUID(uid))
	}
}

func TestEngineClose(t *testing.T) {
	e := seededEngine(nil)
	e.Close()
	require.Nil(t, e.table)
	e.Close() // second close is a no-op
}
