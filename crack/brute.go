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

package crack

import (
	"runtime"
	"sync"
)

const (
	// ScanLimit is the exclusive upper bound of the exhaustive scan. It
	// comfortably covers the legacy UID band (1..2.2e9).
	ScanLimit = 5_000_000_000

	// MaxWorkers caps the brute-force fan-out.
	MaxWorkers = 64

	// MaxCandidates bounds any candidate list returned by a cracker.
	MaxCandidates = 2_000_000
)

// clampWorkers silently forces n into [1, MaxWorkers]; 0 picks a platform
// default.
func clampWorkers(n int) int {
	if n == 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}

// Search scans [0, ScanLimit) for UIDs whose decimal CRC32 equals target and
// returns the minimum match, or 0 if none.
//
// Workers deliberately share no stop flag: CRC32 collides, and the correct
// answer is the globally minimum UID. A worker late in the space finishing
// first must not preempt an earlier, smaller hit. Each worker records into
// its own cell; the minimum is reduced after all of them join.
func Search(target uint32, workers int) uint64 {
	perWorker := scan(target, workers)
	var best uint64
	for _, matches := range perWorker {
		for _, uid := range matches {
			if best == 0 || uid < best {
				best = uid
			}
		}
	}
	return best
}

// SearchAll scans the same space and returns every colliding UID, bounded by
// MaxCandidates. Order follows the chunk layout; callers that care must sort.
func SearchAll(target uint32, workers int) []uint64 {
	perWorker := scan(target, workers)
	var all []uint64
	for _, matches := range perWorker {
		for _, uid := range matches {
			if len(all) >= MaxCandidates {
				return all
			}
			all = append(all, uid)
		}
	}
	return all
}

// scan partitions [0, ScanLimit) into contiguous chunks, one per worker, and
// collects each worker's matches in its own slice. No synchronization is
// needed beyond the final join.
func scan(target uint32, workers int) [][]uint64 {
	n := clampWorkers(workers)
	results := make([][]uint64, n)
	chunk := (uint64(ScanLimit) + uint64(n) - 1) / uint64(n)

	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		lo := uint64(w) * chunk
		hi := lo + chunk
		if hi > ScanLimit {
			hi = ScanLimit
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w int, lo, hi uint64) {
			defer wg.Done()
			results[w] = scanRange(target, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()
	return results
}

// scanRange is one worker's forward pass over [lo, hi).
func scanRange(target uint32, lo, hi uint64) []uint64 {
	var buf [20]byte
	var matches []uint64
	for uid := lo; uid < hi; uid++ {
		s := AppendDecimal(buf[:0], uid)
		if Checksum(s) == target {
			matches = append(matches, uid)
			DefaultSnmp.Collisions.Add(1)
		}
	}
	DefaultSnmp.HashesTried.Add(hi - lo)
	return matches
}
