package dmproto

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func appendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func appendTag(b []byte, field, wire int) []byte {
	return appendVarint(b, uint64(field)<<3|uint64(wire))
}

func appendVarintField(b []byte, field int, v uint64) []byte {
	return appendVarint(appendTag(b, field, wtVarint), v)
}

func appendStringField(b []byte, field int, s string) []byte {
	b = appendTag(b, field, wtLength)
	b = appendVarint(b, uint64(len(s)))
	return append(b, s...)
}

// wrapElem embeds an encoded element as outer field 1.
func wrapElem(b, elem []byte) []byte {
	b = appendTag(b, 1, wtLength)
	b = appendVarint(b, uint64(len(elem)))
	return append(b, elem...)
}

func TestParseSegmentSingleElement(t *testing.T) {
	var elem []byte
	elem = appendVarintField(elem, 1, 7077071718527348) // id
	elem = appendVarintField(elem, 2, 4500)             // progress
	elem = appendVarintField(elem, 3, 1)                // mode
	elem = appendVarintField(elem, 4, 25)               // fontsize
	elem = appendVarintField(elem, 5, 0xFFFFFF)         // color
	elem = appendStringField(elem, 6, "87c8c3d")        // midHash, leading zero lost
	elem = appendStringField(elem, 7, "hello")          // content
	elem = appendVarintField(elem, 8, 1700000000)       // ctime
	elem = appendVarintField(elem, 9, 10)               // weight
	elem = appendStringField(elem, 10, "")              // action
	elem = appendVarintField(elem, 11, 0)               // pool
	elem = appendStringField(elem, 12, "7077071718527348")
	elem = appendVarintField(elem, 13, 2) // attr

	buf := wrapElem(nil, elem)
	buf = appendVarintField(buf, 2, 0) // state

	var got []*Elem
	err := ParseSegment(buf, func(e *Elem) bool {
		copied := *e
		got = append(got, &copied)
		return true
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	require.Equal(t, int64(7077071718527348), e.ID)
	require.Equal(t, int32(4500), e.Progress)
	require.Equal(t, int32(1), e.Mode)
	require.Equal(t, int32(25), e.Fontsize)
	require.Equal(t, uint32(0xFFFFFF), e.Color)
	require.Equal(t, "87c8c3d", e.MidHash)
	require.Equal(t, "hello", e.Content)
	require.Equal(t, int64(1700000000), e.Ctime)
	require.Equal(t, int32(10), e.Weight)
	require.Equal(t, "", e.Action)
	require.Equal(t, int32(0), e.Pool)
	require.Equal(t, "7077071718527348", e.IDStr)
	require.Equal(t, int32(2), e.Attr)
}

func TestParseSegmentStopSignal(t *testing.T) {
	var elem1, elem2 []byte
	elem1 = appendStringField(elem1, 7, "first")
	elem2 = appendStringField(elem2, 7, "second")

	buf := wrapElem(nil, elem1)
	buf = wrapElem(buf, elem2)

	var seen []string
	err := ParseSegment(buf, func(e *Elem) bool {
		seen = append(seen, e.Content)
		return false
	})
	require.NoError(t, err)
	require.Equal(t, []string{"first"}, seen)
}

func TestParseSegmentNilHandler(t *testing.T) {
	var elem []byte
	elem = appendStringField(elem, 7, "ignored")
	require.NoError(t, ParseSegment(wrapElem(nil, elem), nil))
}

func TestParseSegmentSkipsUnknownFields(t *testing.T) {
	var elem []byte
	elem = appendVarintField(elem, 99, 1)                               // unknown varint
	elem = append(appendTag(elem, 20, wt32Bit), 1, 2, 3, 4)             // unknown fixed32
	elem = append(appendTag(elem, 21, wt64Bit), 1, 2, 3, 4, 5, 6, 7, 8) // unknown fixed64
	elem = appendStringField(elem, 22, "blob")                          // unknown bytes
	elem = appendStringField(elem, 7, "kept")

	var content string
	err := ParseSegment(wrapElem(nil, elem), func(e *Elem) bool {
		content = e.Content
		return true
	})
	require.NoError(t, err)
	require.Equal(t, "kept", content)
}

func TestParseSegmentWireTypeMismatch(t *testing.T) {
	// content declared as varint
	var elem []byte
	elem = appendVarintField(elem, 7, 5)
	err := ParseSegment(wrapElem(nil, elem), func(*Elem) bool { return true })
	require.True(t, errors.Is(err, ErrWireTypeMismatch))

	// id declared as length-delimited
	elem = appendStringField(nil, 1, "12")
	err = ParseSegment(wrapElem(nil, elem), func(*Elem) bool { return true })
	require.True(t, errors.Is(err, ErrWireTypeMismatch))

	// outer elems field must be length-delimited
	err = ParseSegment(appendVarintField(nil, 1, 9), nil)
	require.True(t, errors.Is(err, ErrWireTypeMismatch))
}

func TestParseSegmentRejectsGroups(t *testing.T) {
	var elem []byte
	elem = appendTag(elem, 50, wtStartGroup)
	err := ParseSegment(wrapElem(nil, elem), nil)
	require.True(t, errors.Is(err, ErrWireTypeMismatch))

	buf := appendTag(nil, 50, wtEndGroup)
	err = ParseSegment(buf, nil)
	require.True(t, errors.Is(err, ErrWireTypeMismatch))
}

func TestParseSegmentBufferOverflow(t *testing.T) {
	// declared element length runs past the buffer
	buf := appendTag(nil, 1, wtLength)
	buf = appendVarint(buf, 100)
	buf = append(buf, "short"...)
	err := ParseSegment(buf, nil)
	require.True(t, errors.Is(err, ErrBufferOverflow))

	// string inside an element runs past the element
	var elem []byte
	elem = appendTag(elem, 7, wtLength)
	elem = appendVarint(elem, 50)
	elem = append(elem, "tiny"...)
	err = ParseSegment(wrapElem(nil, elem), nil)
	require.True(t, errors.Is(err, ErrBufferOverflow))

	// truncated varint in the state field
	err = ParseSegment([]byte{0x10, 0x80}, nil)
	require.True(t, errors.Is(err, ErrBufferOverflow))
}

func TestParseSegmentVarintOverflow(t *testing.T) {
	var elem []byte
	elem = appendTag(elem, 1, wtVarint)
	for i := 0; i < 10; i++ {
		elem = append(elem, 0x80)
	}
	elem = append(elem, 0x01)
	err := ParseSegment(wrapElem(nil, elem), nil)
	require.True(t, errors.Is(err, ErrVarintOverflow))
}
