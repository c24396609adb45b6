package trace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHash(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"87c8c3d", "087c8c3d"},
		{"BC28C067", "bc28c067"},
		{" 90a567c7 \n", "90a567c7"},
		{"5", "00000005"},
		{"00000000", "00000000"},
	}
	for _, c := range cases {
		got, err := NormalizeHash(c.in)
		require.NoErrorf(t, err, "NormalizeHash(%q)", c.in)
		require.Equal(t, c.want, got)

		// idempotence
		again, err := NormalizeHash(got)
		require.NoError(t, err)
		require.Equal(t, got, again)
	}
}

func TestNormalizeHashRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "123456789", "xyz", "12g4", "0x1234"} {
		_, err := NormalizeHash(in)
		require.Errorf(t, err, "NormalizeHash(%q)", in)
	}
}

func TestParseHash(t *testing.T) {
	v, err := ParseHash("90a567c7")
	require.NoError(t, err)
	require.Equal(t, uint32(0x90a567c7), v)

	v, err = ParseHash(" 87C8C3D")
	require.NoError(t, err)
	require.Equal(t, uint32(0x087c8c3d), v)

	_, err = ParseHash("not-hex")
	require.Error(t, err)
}

func TestDedupe(t *testing.T) {
	got := dedupe([]uint64{9, 3, 9, 1, 3, 3})
	require.Equal(t, []uint64{1, 3, 9}, got)
	require.Empty(t, dedupe(nil))
}
