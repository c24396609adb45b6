// The MIT License (MIT)
//
// # Copyright (c) 2024 rwangrwang31
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package mitm implements the meet-in-the-middle CRC32 inversion: a 16-digit
// search space split into two 8-digit halves joined by the GF(2)-linear CRC
// state shift.
package mitm

import "hash/crc32"

// matrix is a 32x32 binary matrix over GF(2), one uint32 per row. Row i is
// the image of basis vector e_i, so applying the matrix to a state vector is
// an xor-fold over its set bits.
type matrix [32]uint32

// apply returns m·v over GF(2).
func (m *matrix) apply(v uint32) uint32 {
	var sum uint32
	for i := 0; v != 0; i++ {
		if v&1 != 0 {
			sum ^= m[i]
		}
		v >>= 1
	}
	return sum
}

// square returns m·m.
func (m *matrix) square() matrix {
	var sq matrix
	for i := range sq {
		sq[i] = m.apply(m[i])
	}
	return sq
}

// mul returns a·b, the operator applying b first and a second.
func mul(a, b *matrix) matrix {
	var p matrix
	for i := range p {
		p[i] = a.apply(b[i])
	}
	return p
}

func identity() matrix {
	var m matrix
	for i := range m {
		m[i] = 1 << uint(i)
	}
	return m
}

// zeroOperator builds M_n, the combine operator satisfying
//
//	apply(M_n, crc(S)) ^ crc(T) == crc(S ‖ T)   for any n-byte T
//
// with crc being the finalized checksum. The seed is the single-zero-bit
// shift of the reflected CRC register: row 0 is the polynomial, rows 1..31
// the basis shifted down one. Three squarings turn it into the one-byte
// operator, then square-and-multiply over the binary expansion of n does the
// rest. Matrix powers of one operator commute, so accumulation order does not
// matter.
func zeroOperator(n uint64) matrix {
	var op matrix
	op[0] = crc32.IEEE // 0xEDB88320, reflected
	for i, row := 1, uint32(1); i < 32; i, row = i+1, row<<1 {
		op[i] = row
	}
	op = op.square() // two zero bits
	op = op.square() // four zero bits
	op = op.square() // one zero byte

	result := identity()
	for ; n > 0; n >>= 1 {
		if n&1 != 0 {
			result = mul(&op, &result)
		}
		op = op.square()
	}
	return result
}
