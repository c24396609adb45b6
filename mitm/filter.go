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
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// UID bands accepted by the plausibility filter.
const (
	LegacyMaxUID = 2_200_000_000
	ModernMinUID = 1_000_000_000_000_000  // 10^15
	ModernMaxUID = 10_000_000_000_000_000 // 10^16, exclusive
)

// SubRange is an inclusive range of the 2-digit sub field.
type SubRange struct {
	Lo uint8 `json:"lo"`
	Hi uint8 `json:"hi"`
}

// Rule admits modern-band UIDs whose leading 4 digits equal Prefix and whose
// following 2 digits fall into one of Subs.
type Rule struct {
	Prefix uint16     `json:"prefix"`
	Subs   []SubRange `json:"subs"`
}

// DefaultRules is the empirically observed prefix allow-table. It is data,
// not policy: new prefixes show up over time, and deployments can replace the
// whole set from a JSON file via LoadRules.
var DefaultRules = []Rule{
	{Prefix: 3461, Subs: []SubRange{{56, 58}}},
	{Prefix: 3492, Subs: []SubRange{{97, 97}}},
	{Prefix: 3493, Subs: []SubRange{{7, 14}, {25, 29}}},
	{Prefix: 3494, Subs: []SubRange{{35, 38}}},
	{Prefix: 3536, Subs: []SubRange{{99, 99}}},
	{Prefix: 3537, Subs: []SubRange{{10, 12}}},
	{Prefix: 3546, Subs: []SubRange{{37, 37}, {92, 92}}},
}

// Filter prunes meet-in-the-middle candidates down to UIDs that could
// actually have been issued.
type Filter struct {
	allow map[uint16][]SubRange
}

// NewFilter indexes rules for lookup. nil rules means DefaultRules.
func NewFilter(rules []Rule) *Filter {
	if rules == nil {
		rules = DefaultRules
	}
	allow := make(map[uint16][]SubRange, len(rules))
	for _, r := range rules {
		allow[r.Prefix] = append(allow[r.Prefix], r.Subs...)
	}
	return &Filter{allow: allow}
}

// LoadRules reads a JSON rule file: [{"prefix":3546,"subs":[{"lo":37,"hi":37}]}, ...]
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	var rules []Rule
	if err := json.NewDecoder(f).Decode(&rules); err != nil {
		return nil, errors.Wrap(err, "mitm: rule file")
	}
	return rules, nil
}

// Plausible reports whether uid lies in the legacy band, or in the modern
// band with an allow-listed (prefix, sub) pair. Widths of 11..15 decimal
// digits are rejected outright.
func (f *Filter) Plausible(uid uint64) bool {
	if uid >= 1 && uid <= LegacyMaxUID {
		return true
	}
	if uid < ModernMinUID || uid >= ModernMaxUID {
		return false
	}
	prefix := uint16(uid / 1_000_000_000_000)
	sub := uint8(uid / 10_000_000_000 % 100)
	for _, r := range f.allow[prefix] {
		if sub >= r.Lo && sub <= r.Hi {
			return true
		}
	}
	return false
}
