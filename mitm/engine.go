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
	"log"

	"github.com/rwangrwang31/bilitrace/crack"
)

// Engine joins the low-half table, the 8-byte shift operator and the
// plausibility filter into the meet-in-the-middle cracker. Create one with
// NewEngine, release the table with Close. The engine is immutable after
// construction.
type Engine struct {
	table  *Table
	shift8 matrix
	filter *Filter
}

// NewEngine loads the table cache at cachePath (DefaultCachePath when empty),
// rebuilding and re-persisting it when the file is missing or carries a stale
// header. A nil filter means DefaultRules. The shift-by-8 operator is
// computed here, once, and reused on every crack.
func NewEngine(cachePath string, workers int, filter *Filter) (*Engine, error) {
	if cachePath == "" {
		cachePath = DefaultCachePath
	}
	if filter == nil {
		filter = NewFilter(nil)
	}

	table, err := LoadTable(cachePath)
	if err != nil {
		log.Println("mitm: rebuilding low-half table:", err)
		table = BuildTable(workers)
		if serr := table.Save(cachePath); serr != nil {
			// the in-memory table is still usable this run
			log.Println("mitm: cannot persist table cache:", serr)
		}
	} else {
		log.Println("mitm: low-half table loaded from", cachePath)
	}

	return &Engine{
		table:  table,
		shift8: zeroOperator(8),
		filter: filter,
	}, nil
}

// Crack enumerates every UID in the split search space whose decimal CRC32
// equals target, pruned by the filter. For each 8-digit high half H, the crc
// the low half must contribute is target ^ M8(crc(pad8(H))); the table lists
// all low halves with that crc. Every assembled candidate is re-verified with
// a direct checksum before being emitted, so a defect in the operator or the
// table can never produce a wrong answer.
//
// Candidates come out in ascending UID order. The list is capped at
// crack.MaxCandidates; on overflow one warning is logged and the sweep
// continues without appending.
func (e *Engine) Crack(target uint32) []uint64 {
	var (
		results []uint64
		hbuf    [8]byte
		dec     [20]byte
		warned  bool
	)
	for h := uint32(0); h < LowSpace; h++ {
		pad8(&hbuf, h)
		need := target ^ e.shift8.apply(crack.Checksum(hbuf[:]))
		lows := e.table.Lows(need)
		if len(lows) == 0 {
			continue
		}
		crack.DefaultSnmp.MitmLookups.Add(1)
		for _, low := range lows {
			uid := uint64(h)*LowSpace + uint64(low)
			if !e.filter.Plausible(uid) {
				continue
			}
			crack.DefaultSnmp.MitmCandidates.Add(1)
			if crack.Checksum(crack.AppendDecimal(dec[:0], uid)) != target {
				continue
			}
			crack.DefaultSnmp.MitmVerified.Add(1)
			if len(results) >= crack.MaxCandidates {
				if !warned {
					log.Println("mitm: candidate cap reached, further matches dropped")
					warned = true
				}
				continue
			}
			results = append(results, uid)
		}
	}
	crack.DefaultSnmp.MitmPrefixes.Add(LowSpace)
	return results
}

// Table exposes the engine's low-half table read-only.
func (e *Engine) Table() *Table { return e.table }

// Close releases the table buffer. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e.table != nil {
		e.table.entries = nil
		e.table = nil
	}
}
