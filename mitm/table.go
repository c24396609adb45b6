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

package mitm

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"runtime"
	"slices"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/rwangrwang31/bilitrace/crack"
)

const (
	cacheMagic   = 0x4D49544D // "MITM"
	cacheVersion = 1

	// LowSpace is the number of 8-digit low halves, 10^8.
	LowSpace = 100_000_000

	// DefaultCachePath is where the low-half table is persisted.
	DefaultCachePath = "mitm_table.bin"
)

// ErrCacheHeader marks a cache file whose magic or version does not match;
// callers treat the file as absent and rebuild.
var ErrCacheHeader = errors.New("mitm: table cache header mismatch")

// Table is the sorted low-half table: for every i in [0, 10^8) one entry
// pairing crc32(pad8(i)) with i. Entries are packed crc<<32|low so that
// plain uint64 ordering sorts by crc first, low second, and a crc's matches
// form one contiguous run.
//
// The table is built (or loaded) once and is immutable afterwards; concurrent
// readers need no locking.
type Table struct {
	entries []uint64
}

// pad8 writes i as exactly 8 decimal digits with leading zeros.
func pad8(buf *[8]byte, i uint32) {
	for k := 7; k >= 0; k-- {
		buf[k] = byte(i%10) + '0'
		i /= 10
	}
}

// BuildTable computes the full table in parallel and sorts it. workers is
// clamped to [1, 64]; 0 picks a platform default.
func BuildTable(workers int) *Table {
	return &Table{entries: buildEntries(LowSpace, workers)}
}

func buildEntries(space, workers int) []uint64 {
	n := workers
	if n == 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	if n > crack.MaxWorkers {
		n = crack.MaxWorkers
	}

	entries := make([]uint64, space)
	chunk := (space + n - 1) / n

	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > space {
			hi = space
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			var buf [8]byte
			for i := lo; i < hi; i++ {
				pad8(&buf, uint32(i))
				entries[i] = uint64(crack.Checksum(buf[:]))<<32 | uint64(i)
			}
		}(lo, hi)
	}
	wg.Wait()

	slices.Sort(entries)
	return entries
}

// Lows returns every low half i with crc32(pad8(i)) == target. The returned
// slice is nil when the crc has no preimage in the low space.
func (t *Table) Lows(target uint32) []uint32 {
	key := uint64(target) << 32
	idx := sort.Search(len(t.entries), func(i int) bool { return t.entries[i] >= key })
	var lows []uint32
	for ; idx < len(t.entries) && t.entries[idx]>>32 == uint64(target); idx++ {
		lows = append(lows, uint32(t.entries[idx]))
	}
	return lows
}

// Len returns the entry count.
func (t *Table) Len() int { return len(t.entries) }

// Save persists the table as magic ‖ version ‖ (crc u32le, low u32le)×n.
func (t *Table) Save(path string) error {
	return saveEntries(path, t.entries)
}

func saveEntries(path string, entries []uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], cacheMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], cacheVersion)
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.WithStack(err)
	}

	var rec [8]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(e>>32))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(e))
		if _, err := w.Write(rec[:]); err != nil {
			return errors.WithStack(err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Sync())
}

// LoadTable reads a previously persisted table. A magic or version mismatch
// returns ErrCacheHeader so the caller can rebuild; truncated or unreadable
// files return the underlying I/O error.
func LoadTable(path string) (*Table, error) {
	entries, err := loadEntries(path, LowSpace)
	if err != nil {
		return nil, err
	}
	return &Table{entries: entries}, nil
}

func loadEntries(path string, count int) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "mitm: table cache header")
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != cacheMagic ||
		binary.LittleEndian.Uint32(hdr[4:8]) != cacheVersion {
		return nil, ErrCacheHeader
	}

	entries := make([]uint64, count)
	buf := make([]byte, 8*8192)
	next := 0
	for next < count {
		want := len(buf)
		if rem := (count - next) * 8; rem < want {
			want = rem
		}
		if _, err := io.ReadFull(r, buf[:want]); err != nil {
			return nil, errors.Wrap(err, "mitm: table cache body")
		}
		for off := 0; off < want; off += 8 {
			crc := binary.LittleEndian.Uint32(buf[off : off+4])
			low := binary.LittleEndian.Uint32(buf[off+4 : off+8])
			entries[next] = uint64(crc)<<32 | uint64(low)
			next++
		}
	}
	return entries, nil
}
