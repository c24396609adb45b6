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

// Package trace drives the crackers: it normalizes fingerprints, picks a
// strategy and aggregates candidates.
package trace

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rwangrwang31/bilitrace/crack"
	"github.com/rwangrwang31/bilitrace/mitm"
)

// Verifier is the external existence oracle. Exists returns (true, nil) when
// uid is confirmed to exist upstream, (false, nil) when confirmed absent, and
// a non-nil error when the check could not be carried out.
type Verifier interface {
	Exists(uid uint64) (bool, error)
}

// NormalizeHash canonicalizes a wire-form fingerprint: surrounding whitespace
// is trimmed, case folded to lower, and the string left-padded with zeros to
// exactly 8 hex digits (protobuf drops leading zeros). Inputs longer than 8
// chars or containing non-hex characters are rejected.
func NormalizeHash(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 0 || len(s) > 8 {
		return "", errors.Errorf("trace: fingerprint %q must be 1..8 hex chars", s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", errors.Errorf("trace: fingerprint %q is not hex", s)
		}
	}
	return strings.Repeat("0", 8-len(s)) + s, nil
}

// ParseHash normalizes s and returns the 32-bit fingerprint value.
func ParseHash(s string) (uint32, error) {
	norm, err := NormalizeHash(s)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(norm, 16, 32)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return uint32(v), nil
}

// Tracer owns the cracking strategies. The zero value is usable for legacy
// cracking; the MITM engine is initialized lazily on first use (or explicitly
// via InitMITM) and released with Shutdown.
type Tracer struct {
	Workers   int          // brute-force and table-build fan-out, 0 = auto
	CachePath string       // low-half table cache, "" = mitm.DefaultCachePath
	Filter    *mitm.Filter // candidate filter, nil = default rules
	Verifier  Verifier     // optional external oracle for auto strategy

	engine *mitm.Engine
}

// InitMITM builds or loads the MITM engine. Idempotent.
func (t *Tracer) InitMITM() error {
	if t.engine != nil {
		return nil
	}
	engine, err := mitm.NewEngine(t.CachePath, t.Workers, t.Filter)
	if err != nil {
		return err
	}
	t.engine = engine
	return nil
}

// Shutdown releases the MITM table. The tracer can be re-initialized.
func (t *Tracer) Shutdown() {
	if t.engine != nil {
		t.engine.Close()
		t.engine = nil
	}
}

// CrackLegacy exhaustively scans the legacy band and returns the minimum
// matching UID, or 0 when nothing in the band collides.
func (t *Tracer) CrackLegacy(fingerprint string) (uint64, error) {
	target, err := ParseHash(fingerprint)
	if err != nil {
		return 0, err
	}
	return crack.Search(target, t.Workers), nil
}

// CrackLegacyAll returns every colliding UID in the legacy scan range,
// ascending. An empty list is a valid outcome, not an error.
func (t *Tracer) CrackLegacyAll(fingerprint string) ([]uint64, error) {
	target, err := ParseHash(fingerprint)
	if err != nil {
		return nil, err
	}
	return dedupe(crack.SearchAll(target, t.Workers)), nil
}

// CrackMITM runs the meet-in-the-middle engine, initializing it on first
// use. Candidates are deduplicated and ascending.
func (t *Tracer) CrackMITM(fingerprint string) ([]uint64, error) {
	target, err := ParseHash(fingerprint)
	if err != nil {
		return nil, err
	}
	if err := t.InitMITM(); err != nil {
		return nil, err
	}
	return dedupe(t.engine.Crack(target)), nil
}

// CrackAuto runs the brute-force scan first and falls back to the MITM
// engine when the scan produced nothing externally verifiable. Without a
// Verifier, any brute-force hit is taken at face value.
func (t *Tracer) CrackAuto(fingerprint string) ([]uint64, error) {
	legacy, err := t.CrackLegacyAll(fingerprint)
	if err != nil {
		return nil, err
	}
	if t.Verifier == nil {
		if len(legacy) > 0 {
			return legacy, nil
		}
		return t.CrackMITM(fingerprint)
	}
	for _, uid := range legacy {
		if ok, err := t.Verifier.Exists(uid); err == nil && ok {
			return legacy, nil
		}
	}
	return t.CrackMITM(fingerprint)
}

// dedupe sorts ascending and removes duplicates in place.
func dedupe(uids []uint64) []uint64 {
	slices.Sort(uids)
	return slices.Compact(uids)
}
