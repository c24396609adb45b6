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

// Package history fetches danmaku data from the upstream API: the
// authenticated month-indexed history endpoints and the anonymous realtime
// XML feed.
package history

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	apiBase     = "https://api.bilibili.com"
	commentBase = "https://comment.bilibili.com"
	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 bilitrace/2.1"
)

// Client talks to the upstream API. SessData, when set, is sent as the
// SESSDATA cookie on every request; the history endpoints refuse anonymous
// access.
type Client struct {
	SessData string
	Cache    *SegmentCache // optional; hit before the network

	hc      *http.Client
	api     string // overridable in tests
	comment string
}

// NewClient builds a client with a 30 second request timeout.
func NewClient(sessdata string) *Client {
	return &Client{
		SessData: sessdata,
		hc:       &http.Client{Timeout: 30 * time.Second},
		api:      apiBase,
		comment:  commentBase,
	}
}

// get performs one request with the browser User-Agent and the auth cookie,
// inflating gzip/deflate bodies the way curl's ACCEPT_ENCODING "" did.
func (c *Client) get(rawurl string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if c.SessData != "" {
		req.AddCookie(&http.Cookie{Name: "SESSDATA", Value: c.SessData})
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("history: %s returned %s", rawurl, resp.Status)
	}

	var body io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer zr.Close()
		body = zr
	case "deflate":
		// servers disagree on whether "deflate" means zlib-wrapped or raw
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			body = flate.NewReader(resp.Body)
		} else {
			defer zr.Close()
			body = zr
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// VideoInfo describes a video: the first part's cid and the publish time,
// which bounds how far back the history walk needs to go.
type VideoInfo struct {
	CID     int64  `json:"cid"`
	Pubdate int64  `json:"pubdate"`
	Title   string `json:"title"`
}

// Video resolves a BV id via the public view API.
func (c *Client) Video(bvid string) (*VideoInfo, error) {
	u := fmt.Sprintf("%s/x/web-interface/view?bvid=%s", c.api, url.QueryEscape(bvid))
	body, err := c.get(u)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Code    int       `json:"code"`
		Message string    `json:"message"`
		Data    VideoInfo `json:"data"`
	}
	if err := decodeJSON(body, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 0 {
		return nil, errors.Errorf("history: view API code %d: %s", reply.Code, reply.Message)
	}
	if reply.Data.CID == 0 {
		return nil, errors.Errorf("history: view API returned no cid for %s", bvid)
	}
	return &reply.Data, nil
}

// Index lists the dates ("YYYY-MM-DD") of month ("YYYY-MM") that have
// archived danmaku for cid. An empty list means an empty month, not an
// error; the API encodes it as data:null.
func (c *Client) Index(cid int64, month string) ([]string, error) {
	u := fmt.Sprintf("%s/x/v2/dm/history/index?type=1&oid=%d&month=%s",
		c.api, cid, url.QueryEscape(month))
	body, err := c.get(u)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Data    []string `json:"data"`
	}
	if err := decodeJSON(body, &reply); err != nil {
		return nil, err
	}
	if reply.Code != 0 {
		return nil, errors.Errorf("history: index API code %d: %s", reply.Code, reply.Message)
	}
	return reply.Data, nil
}

// Segment fetches the protobuf danmaku segment archived for cid on date
// ("YYYY-MM-DD"), consulting the disk cache first when one is configured.
func (c *Client) Segment(cid int64, date string) ([]byte, error) {
	if c.Cache != nil {
		if data, ok := c.Cache.Load(cid, date); ok {
			return data, nil
		}
	}

	u := fmt.Sprintf("%s/x/v2/dm/web/history/seg.so?type=1&oid=%d&date=%s",
		c.api, cid, url.QueryEscape(date))
	data, err := c.get(u)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil && len(data) > 0 {
		if err := c.Cache.Store(cid, date, data); err != nil {
			return data, err
		}
	}
	return data, nil
}

// Realtime downloads the anonymous realtime danmaku XML for cid.
func (c *Client) Realtime(cid int64) ([]byte, error) {
	return c.get(fmt.Sprintf("%s/%d.xml", c.comment, cid))
}

// Exists asks the card API whether an account with this uid exists. It
// satisfies trace.Verifier: a cracker candidate is only a CRC32 preimage,
// the upstream directory is the ground truth.
func (c *Client) Exists(uid uint64) (bool, error) {
	body, err := c.get(fmt.Sprintf("%s/x/web-interface/card?mid=%d", c.api, uid))
	if err != nil {
		return false, err
	}

	var reply struct {
		Code int `json:"code"`
	}
	if err := decodeJSON(body, &reply); err != nil {
		return false, err
	}
	return reply.Code == 0, nil
}

func decodeJSON(body []byte, v interface{}) error {
	return errors.Wrap(json.Unmarshal(body, v), "history: decode reply")
}
