package crack

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumGoldenVectors(t *testing.T) {
	vectors := []struct {
		in   string
		want uint32
	}{
		{"3546921440381311", 0x90a567c7},
		{"35469214", 0x68947c4d},
		{"40381311", 0x2640627d},
	}
	for _, v := range vectors {
		require.Equalf(t, v.want, Checksum([]byte(v.in)), "Checksum(%q)", v.in)
	}
}

func TestAppendDecimal(t *testing.T) {
	cases := []struct {
		uid  uint64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{10, "10"},
		{2_200_000_000, "2200000000"},
		{3546921440381311, "3546921440381311"},
		{18446744073709551615, "18446744073709551615"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, string(AppendDecimal(nil, c.uid)))
	}

	// appends, does not overwrite
	got := AppendDecimal([]byte("uid="), 42)
	require.Equal(t, "uid=42", string(got))
}

func TestChecksumUIDMatchesStrconv(t *testing.T) {
	for _, uid := range []uint64{0, 1, 9, 12345, 2_200_000_000, 3546921440381311} {
		want := Checksum([]byte(strconv.FormatUint(uid, 10)))
		require.Equal(t, want, ChecksumUID(uid))
	}
}
