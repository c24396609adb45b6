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
	"encoding/xml"
	"strings"

	"github.com/pkg/errors"
)

// RealtimeDanmaku is one record from the legacy realtime XML feed. Only the
// content and the sender hash survive the trip; the hash is the 7th
// comma-separated field of the `p` attribute and may need zero-padding like
// its protobuf counterpart.
type RealtimeDanmaku struct {
	Content string
	MidHash string
}

type realtimeDoc struct {
	XMLName xml.Name       `xml:"i"`
	Items   []realtimeItem `xml:"d"`
}

type realtimeItem struct {
	P       string `xml:"p,attr"`
	Content string `xml:",chardata"`
}

// ParseRealtime decodes the `<i><d p="...">text</d>...</i>` document.
// Records with a malformed attribute list are dropped, not fatal.
func ParseRealtime(data []byte) ([]RealtimeDanmaku, error) {
	var doc realtimeDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "history: realtime xml")
	}

	out := make([]RealtimeDanmaku, 0, len(doc.Items))
	for _, item := range doc.Items {
		fields := strings.Split(item.P, ",")
		if len(fields) < 7 {
			continue
		}
		out = append(out, RealtimeDanmaku{
			Content: item.Content,
			MidHash: fields[6],
		})
	}
	return out, nil
}
