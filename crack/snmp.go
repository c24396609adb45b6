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
	"fmt"
	"sync/atomic"
)

// Snmp aggregates cracking counters. All fields are updated atomically and
// may be read while scans are in flight.
type Snmp struct {
	HashesTried    atomic.Uint64 // decimal strings hashed by the brute scan
	Collisions     atomic.Uint64 // brute-force fingerprint hits
	MitmPrefixes   atomic.Uint64 // high halves swept by the MITM engine
	MitmLookups    atomic.Uint64 // low-half table probes that returned entries
	MitmCandidates atomic.Uint64 // assembled candidates surviving the filter
	MitmVerified   atomic.Uint64 // candidates surviving re-verification
}

func newSnmp() *Snmp {
	return new(Snmp)
}

// Header returns the field names, CSV-ordered.
func (s *Snmp) Header() []string {
	return []string{
		"HashesTried",
		"Collisions",
		"MitmPrefixes",
		"MitmLookups",
		"MitmCandidates",
		"MitmVerified",
	}
}

// ToSlice returns the current values, ordered as Header.
func (s *Snmp) ToSlice() []string {
	snmp := s.Copy()
	return []string{
		fmt.Sprint(snmp.HashesTried.Load()),
		fmt.Sprint(snmp.Collisions.Load()),
		fmt.Sprint(snmp.MitmPrefixes.Load()),
		fmt.Sprint(snmp.MitmLookups.Load()),
		fmt.Sprint(snmp.MitmCandidates.Load()),
		fmt.Sprint(snmp.MitmVerified.Load()),
	}
}

// Copy makes a point-in-time snapshot.
func (s *Snmp) Copy() *Snmp {
	d := newSnmp()
	d.HashesTried.Store(s.HashesTried.Load())
	d.Collisions.Store(s.Collisions.Load())
	d.MitmPrefixes.Store(s.MitmPrefixes.Load())
	d.MitmLookups.Store(s.MitmLookups.Load())
	d.MitmCandidates.Store(s.MitmCandidates.Load())
	d.MitmVerified.Store(s.MitmVerified.Load())
	return d
}

// Reset zeroes all counters.
func (s *Snmp) Reset() {
	s.HashesTried.Store(0)
	s.Collisions.Store(0)
	s.MitmPrefixes.Store(0)
	s.MitmLookups.Store(0)
	s.MitmCandidates.Store(0)
	s.MitmVerified.Store(0)
}

// DefaultSnmp is the global crack statistics collector.
var DefaultSnmp = newSnmp()
