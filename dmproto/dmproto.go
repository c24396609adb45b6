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

// Package dmproto is a hand-rolled protobuf wire reader for the danmaku
// segment reply. The shape is fixed:
//
//	message DmSegMobileReply {
//	  repeated DanmakuElem elems = 1;
//	  int32 state = 2;
//	}
//
// Only the wire format is implemented, no descriptors and no reflection; the
// decoder streams elements to a callback instead of materializing the whole
// reply.
package dmproto

import "github.com/pkg/errors"

// Decode failure kinds. Errors returned by ParseSegment wrap one of these
// sentinels.
var (
	ErrInvalidData      = errors.New("dmproto: invalid data")
	ErrBufferOverflow   = errors.New("dmproto: buffer overflow")
	ErrWireTypeMismatch = errors.New("dmproto: wire type mismatch")
	ErrVarintOverflow   = errors.New("dmproto: varint overflow")
)

// Protobuf wire types. Groups (3/4) are obsolete and treated as malformed.
const (
	wtVarint     = 0
	wt64Bit      = 1
	wtLength     = 2
	wtStartGroup = 3
	wtEndGroup   = 4
	wt32Bit      = 5
)

// Elem is one danmaku record. MidHash is the sender fingerprint the crackers
// consume; protobuf drops leading zeros, so it may be shorter than 8 chars
// and must be normalized before use.
type Elem struct {
	ID       int64  // field 1
	Progress int32  // field 2
	Mode     int32  // field 3
	Fontsize int32  // field 4
	Color    uint32 // field 5
	MidHash  string // field 6
	Content  string // field 7
	Ctime    int64  // field 8
	Weight   int32  // field 9
	Action   string // field 10
	Pool     int32  // field 11
	IDStr    string // field 12
	Attr     int32  // field 13
}

// Handler receives each parsed element in stream order. Returning false
// stops the scan; ParseSegment then returns nil without consuming the rest
// of the buffer. The element is only valid for the duration of the call.
type Handler func(*Elem) bool

type reader struct {
	buf []byte
	pos int
}

func (r *reader) varint() (uint64, error) {
	var v uint64
	shift := uint(0)
	for r.pos < len(r.buf) && shift < 64 {
		b := r.buf[r.pos]
		v |= uint64(b&0x7f) << shift
		r.pos++
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
	if shift >= 64 {
		return 0, ErrVarintOverflow
	}
	return 0, ErrBufferOverflow
}

func (r *reader) skip(wire int) error {
	switch wire {
	case wtVarint:
		_, err := r.varint()
		return err
	case wt64Bit:
		if r.pos+8 > len(r.buf) {
			return ErrBufferOverflow
		}
		r.pos += 8
		return nil
	case wtLength:
		n, err := r.varint()
		if err != nil {
			return err
		}
		if n > uint64(len(r.buf)-r.pos) {
			return ErrBufferOverflow
		}
		r.pos += int(n)
		return nil
	case wt32Bit:
		if r.pos+4 > len(r.buf) {
			return ErrBufferOverflow
		}
		r.pos += 4
		return nil
	default:
		return ErrWireTypeMismatch
	}
}

func (r *reader) str() (string, error) {
	n, err := r.varint()
	if err != nil {
		return "", err
	}
	if n > uint64(len(r.buf)-r.pos) {
		return "", ErrBufferOverflow
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// i32 reads a varint field declared as int32.
func (r *reader) i32() (int32, error) {
	v, err := r.varint()
	return int32(v), err
}

// parseElem decodes one DanmakuElem from data. A known field carrying the
// wrong wire type aborts the element with ErrWireTypeMismatch; unknown
// fields are skipped for forward compatibility.
func parseElem(data []byte) (*Elem, error) {
	r := &reader{buf: data}
	elem := new(Elem)

	for r.pos < len(r.buf) {
		tag, err := r.varint()
		if err != nil {
			return nil, err
		}
		fieldNum := tag >> 3
		wire := int(tag & 0x07)

		want := wtVarint
		switch fieldNum {
		case 6, 7, 10, 12:
			want = wtLength
		}
		switch fieldNum {
		case 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13:
			if wire != want {
				return nil, ErrWireTypeMismatch
			}
		}

		switch fieldNum {
		case 1:
			var v uint64
			v, err = r.varint()
			elem.ID = int64(v)
		case 2:
			elem.Progress, err = r.i32()
		case 3:
			elem.Mode, err = r.i32()
		case 4:
			elem.Fontsize, err = r.i32()
		case 5:
			var v uint64
			v, err = r.varint()
			elem.Color = uint32(v)
		case 6:
			elem.MidHash, err = r.str()
		case 7:
			elem.Content, err = r.str()
		case 8:
			var v uint64
			v, err = r.varint()
			elem.Ctime = int64(v)
		case 9:
			elem.Weight, err = r.i32()
		case 10:
			elem.Action, err = r.str()
		case 11:
			elem.Pool, err = r.i32()
		case 12:
			elem.IDStr, err = r.str()
		case 13:
			elem.Attr, err = r.i32()
		default:
			err = r.skip(wire)
		}
		if err != nil {
			return nil, err
		}
	}
	return elem, nil
}

// ParseSegment walks a DmSegMobileReply buffer and hands each element to h.
// A parse error inside any element aborts the whole segment: the stream
// alignment is lost at that point, so there is nothing sensible to resume.
// h returning false stops iteration early with a nil error.
func ParseSegment(data []byte, h Handler) error {
	r := &reader{buf: data}

	for r.pos < len(r.buf) {
		tag, err := r.varint()
		if err != nil {
			return err
		}
		fieldNum := tag >> 3
		wire := int(tag & 0x07)

		switch fieldNum {
		case 1: // elems
			if wire != wtLength {
				return ErrWireTypeMismatch
			}
			n, err := r.varint()
			if err != nil {
				return err
			}
			if n > uint64(len(r.buf)-r.pos) {
				return ErrBufferOverflow
			}
			elem, err := parseElem(r.buf[r.pos : r.pos+int(n)])
			if err != nil {
				return err
			}
			if h != nil && !h(elem) {
				return nil
			}
			r.pos += int(n)
		case 2: // state
			if wire != wtVarint {
				return ErrWireTypeMismatch
			}
			if _, err := r.varint(); err != nil {
				return err
			}
		default:
			if err := r.skip(wire); err != nil {
				return err
			}
		}
	}
	return nil
}
