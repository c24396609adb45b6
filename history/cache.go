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

package history

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// SegmentCache stores downloaded history segments on disk, one
// snappy-compressed file per (cid, date), so repeated walks over the same
// video skip the network entirely.
type SegmentCache struct {
	dir string
}

// NewSegmentCache creates dir if needed.
func NewSegmentCache(dir string) (*SegmentCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	return &SegmentCache{dir: dir}, nil
}

func (s *SegmentCache) path(cid int64, date string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d-%s.seg.sz", cid, date))
}

// Load returns the cached segment, or ok=false on miss or any read error;
// a damaged entry just falls back to the network.
func (s *SegmentCache) Load(cid int64, date string) (data []byte, ok bool) {
	f, err := os.Open(s.path(cid, date))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	data, err = io.ReadAll(snappy.NewReader(f))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Store writes the segment through a buffered snappy writer.
func (s *SegmentCache) Store(cid int64, date string, data []byte) error {
	f, err := os.Create(s.path(cid, date))
	if err != nil {
		return errors.WithStack(err)
	}

	w := snappy.NewBufferedWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}
