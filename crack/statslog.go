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
	"encoding/csv"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// StatsLog appends DefaultSnmp snapshots to a CSV file. Cracks are discrete
// units of work, so rows are cut when one finishes rather than on a wall
// clock: each row is the cumulative state right after a fingerprint was
// processed, tagged with the fingerprint that triggered it.
type StatsLog struct {
	mu   sync.Mutex
	path string
}

// NewStatsLog records snapshots into the file at path, creating it on the
// first snapshot. An empty path yields a nil log; Snapshot on nil is a no-op,
// so callers never need to guard the call sites.
func NewStatsLog(path string) *StatsLog {
	if path == "" {
		return nil
	}
	return &StatsLog{path: path}
}

// Snapshot appends one row for the crack that just finished.
func (l *StatsLog) Snapshot(fingerprint string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		header := append([]string{"Time", "Fingerprint"}, DefaultSnmp.Header()...)
		if err := w.Write(header); err != nil {
			return errors.WithStack(err)
		}
	}

	row := append([]string{time.Now().Format(time.RFC3339), fingerprint}, DefaultSnmp.ToSlice()...)
	if err := w.Write(row); err != nil {
		return errors.WithStack(err)
	}
	w.Flush()
	return errors.WithStack(w.Error())
}
