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

// Package crack recovers numeric user identifiers from the CRC32 fingerprint
// of their decimal representation.
package crack

import "hash/crc32"

// Checksum returns the IEEE CRC32 (reflected 0xEDB88320, init and final xor
// 0xFFFFFFFF) of p. This is the exact transform the upstream service applies
// to the decimal UID string.
func Checksum(p []byte) uint32 {
	return crc32.ChecksumIEEE(p)
}

// AppendDecimal appends the decimal ASCII digits of uid to dst and returns
// the extended slice. It is the hot-loop replacement for strconv: digits are
// produced by repeated div/mod 10 into a scratch array, then copied in order.
func AppendDecimal(dst []byte, uid uint64) []byte {
	if uid == 0 {
		return append(dst, '0')
	}
	var tmp [20]byte
	i := len(tmp)
	for uid > 0 {
		i--
		tmp[i] = byte(uid%10) + '0'
		uid /= 10
	}
	return append(dst, tmp[i:]...)
}

// ChecksumUID returns the CRC32 fingerprint of uid's decimal form.
func ChecksumUID(uid uint64) uint32 {
	var buf [20]byte
	return Checksum(AppendDecimal(buf[:0], uid))
}
