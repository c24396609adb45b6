package mitm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwangrwang31/bilitrace/crack"
)

func TestZeroOperatorGoldenVector(t *testing.T) {
	// crc("35469214") combined with crc("40381311") must give
	// crc("3546921440381311")
	m8 := zeroOperator(8)
	require.Equal(t, uint32(0x90a567c7), m8.apply(0x68947c4d)^uint32(0x2640627d))
}

func TestZeroOperatorCombineIdentity(t *testing.T) {
	cases := []struct{ head, tail string }{
		{"5", "15808585"},
		{"35469214", "40381311"},
		{"0", "00000000"},
		{"99999999", "00000001"},
		{"abcdef", "qrstuvwx"},
	}
	m8 := zeroOperator(8)
	for _, c := range cases {
		require.Len(t, c.tail, 8)
		got := m8.apply(crack.Checksum([]byte(c.head))) ^ crack.Checksum([]byte(c.tail))
		want := crack.Checksum([]byte(c.head + c.tail))
		require.Equalf(t, want, got, "combine %q ‖ %q", c.head, c.tail)
	}
}

func TestZeroOperatorArbitraryLengths(t *testing.T) {
	head := []byte("prefix-string")
	for _, n := range []int{1, 2, 3, 5, 16} {
		tail := make([]byte, n)
		for i := range tail {
			tail[i] = byte('0' + i%10)
		}
		m := zeroOperator(uint64(n))
		got := m.apply(crack.Checksum(head)) ^ crack.Checksum(tail)
		want := crack.Checksum(append(append([]byte(nil), head...), tail...))
		require.Equalf(t, want, got, "tail length %d", n)
	}
}

func TestIdentityApply(t *testing.T) {
	id := identity()
	for _, v := range []uint32{0, 1, 0xdeadbeef, 0xffffffff, 0x80000000} {
		require.Equal(t, v, id.apply(v))
	}
}

func TestSquareMatchesMul(t *testing.T) {
	m := zeroOperator(3)
	sq := m.square()
	viaMul := mul(&m, &m)
	require.Equal(t, viaMul, sq)
}
