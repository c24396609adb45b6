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

package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/rwangrwang31/bilitrace/crack"
	"github.com/rwangrwang31/bilitrace/dmproto"
	"github.com/rwangrwang31/bilitrace/history"
	"github.com/rwangrwang31/bilitrace/mitm"
	"github.com/rwangrwang31/bilitrace/trace"
)

const (
	// earliest month worth walking back to
	firstMonth = "2009-01"
	// consecutive empty months before the walk gives up
	emptyMonthLimit = 6
	// politeness delay between segment downloads
	segmentDelay = 1500 * time.Millisecond
	// politeness delay between existence checks
	verifyDelay = 150 * time.Millisecond
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		// add more log flags for debugging
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "bilitrace"
	myApp.Usage = "recover the sender UID behind a danmaku CRC32 fingerprint"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "hash",
			Usage: "crack a single CRC32 fingerprint offline, eg: 90a567c7",
		},
		cli.Int64Flag{
			Name:  "cid",
			Usage: "video content id to scan danmaku from",
		},
		cli.StringFlag{
			Name:  "bvid",
			Usage: "video BV id; resolves cid and publish date automatically",
		},
		cli.StringFlag{
			Name:  "search",
			Usage: "only trace danmaku whose content contains this keyword",
		},
		cli.StringFlag{
			Name:   "sessdata",
			Usage:  "SESSDATA cookie; enables the authenticated history walk",
			EnvVar: "BILITRACE_SESSDATA",
		},
		cli.IntFlag{
			Name:  "threads",
			Value: 0,
			Usage: "worker count for brute force and table build, 0 for auto, capped at 64",
		},
		cli.BoolFlag{
			Name:  "first",
			Usage: "stop after the first traced danmaku",
		},
		cli.IntFlag{
			Name:  "limit",
			Value: 20,
			Usage: "max records scanned in realtime mode",
		},
		cli.StringFlag{
			Name:  "mode",
			Value: "auto",
			Usage: "crack strategy: legacy, mitm, auto",
		},
		cli.StringFlag{
			Name:  "table",
			Value: mitm.DefaultCachePath,
			Usage: "path of the precomputed low-half table cache (~800 MiB)",
		},
		cli.StringFlag{
			Name:  "uidrules",
			Usage: "JSON file replacing the built-in modern-UID prefix rules",
		},
		cli.StringFlag{
			Name:  "segcache",
			Usage: "directory for the compressed history segment cache, empty to disable",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "append a crack counter snapshot to this CSV file after every fingerprint",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "accepted for config compatibility; has no effect",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "", // when the value is not empty, the config path must exists
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		config := Config{}
		config.Hash = c.String("hash")
		config.CID = c.Int64("cid")
		config.BVID = c.String("bvid")
		config.Search = c.String("search")
		config.SessData = c.String("sessdata")
		config.Threads = c.Int("threads")
		config.First = c.Bool("first")
		config.Limit = c.Int("limit")
		config.Mode = c.String("mode")
		config.Table = c.String("table")
		config.UIDRules = c.String("uidrules")
		config.SegCache = c.String("segcache")
		config.Log = c.String("log")
		config.SnmpLog = c.String("snmplog")
		config.Quiet = c.Bool("quiet")

		if c.String("c") != "" {
			err := parseJSONConfig(&config, c.String("c"))
			checkError(err)
		}

		// log redirect
		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		log.Println("version:", VERSION)
		log.Println("mode:", config.Mode)
		log.Println("threads:", config.Threads)
		log.Println("table:", config.Table)
		log.Println("snmplog:", config.SnmpLog)

		switch config.Mode {
		case "legacy", "mitm", "auto":
		default:
			log.Fatal("unknown crack mode:", config.Mode)
		}

		stats := crack.NewStatsLog(config.SnmpLog)

		var filter *mitm.Filter
		if config.UIDRules != "" {
			rules, err := mitm.LoadRules(config.UIDRules)
			checkError(err)
			log.Println("uid rules loaded from:", config.UIDRules)
			filter = mitm.NewFilter(rules)
		}

		tracer := &trace.Tracer{
			Workers:   config.Threads,
			CachePath: config.Table,
			Filter:    filter,
		}
		defer tracer.Shutdown()

		switch {
		case config.Hash != "":
			return crackOffline(&config, tracer, stats)
		case config.CID != 0 || config.BVID != "":
			return crawl(&config, tracer, stats)
		default:
			return cli.ShowAppHelp(c)
		}
	}
	myApp.Run(os.Args)
}

// crackOffline handles `-hash`: no network, just the requested strategy.
func crackOffline(config *Config, tracer *trace.Tracer, stats *crack.StatsLog) error {
	norm, err := trace.NormalizeHash(config.Hash)
	checkError(err)
	if norm != strings.TrimSpace(config.Hash) {
		log.Printf("fingerprint normalized: %s -> %s", config.Hash, norm)
	}

	start := time.Now()
	var uids []uint64
	switch config.Mode {
	case "legacy":
		uid, err := tracer.CrackLegacy(norm)
		checkError(err)
		if uid != 0 {
			uids = []uint64{uid}
		}
	case "mitm":
		uids, err = tracer.CrackMITM(norm)
		checkError(err)
	default:
		uids, err = tracer.CrackAuto(norm)
		checkError(err)
	}
	log.Println("crack finished in", time.Since(start))
	if err := stats.Snapshot(norm); err != nil {
		log.Println("stats log:", err)
	}

	reportCandidates(norm, uids, nil, false)
	return nil
}

// crawl handles the online modes: history walk when a SESSDATA cookie is
// present, anonymous realtime scan otherwise.
func crawl(config *Config, tracer *trace.Tracer, stats *crack.StatsLog) error {
	client := history.NewClient(config.SessData)
	if config.SegCache != "" {
		cache, err := history.NewSegmentCache(config.SegCache)
		checkError(err)
		client.Cache = cache
		log.Println("segment cache:", config.SegCache)
	}
	tracer.Verifier = client

	cid := config.CID
	var pubdate int64
	if config.BVID != "" {
		info, err := client.Video(config.BVID)
		checkError(err)
		cid = info.CID
		pubdate = info.Pubdate
		log.Printf("resolved %s: cid=%d title=%q", config.BVID, cid, info.Title)
	}
	if cid == 0 {
		log.Fatal("no cid: pass -cid or -bvid")
	}

	ctx := &searchContext{
		config: config,
		tracer: tracer,
		client: client,
		stats:  stats,
		seen:   make(map[int64]bool),
	}

	if config.SessData != "" {
		log.Println("history mode: walking the date index backwards")
		log.Println("make sure the SESSDATA belongs to a throwaway account")
		walkHistory(ctx, cid, pubdate)
		if !ctx.foundAny && config.Search != "" {
			log.Println("history walk found nothing, falling back to realtime")
			scanRealtime(ctx, cid)
		}
	} else {
		log.Println("realtime mode (anonymous)")
		scanRealtime(ctx, cid)
	}

	log.Printf("done: %d records scanned, %d matched", ctx.processed, ctx.matched)
	return nil
}

// searchContext carries the per-run crawl state shared by the history and
// realtime paths.
type searchContext struct {
	config    *Config
	tracer    *trace.Tracer
	client    *history.Client
	stats     *crack.StatsLog
	seen      map[int64]bool // danmaku ids already handled
	processed int
	matched   int
	found     bool // a matched danmaku was fully traced
	foundAny  bool
}

// handle is the dmproto callback: dedupe, keyword match, crack, report.
// Returning false stops the current segment scan.
func (ctx *searchContext) handle(elem *dmproto.Elem) bool {
	if ctx.config.First && ctx.found {
		return false
	}
	ctx.processed++

	if elem.ID != 0 {
		if ctx.seen[elem.ID] {
			return true
		}
		ctx.seen[elem.ID] = true
	}

	if ctx.config.Search != "" && !strings.Contains(elem.Content, ctx.config.Search) {
		return true
	}
	ctx.matched++
	ctx.foundAny = true

	fmt.Println()
	color.HiWhite("#%d %s  (ctime %d)", ctx.matched, elem.Content, elem.Ctime)
	if elem.MidHash == "" {
		color.Red("record carries no sender hash")
		return true
	}

	norm, err := trace.NormalizeHash(elem.MidHash)
	if err != nil {
		color.Red("malformed sender hash %q: %v", elem.MidHash, err)
		return true
	}
	if norm != elem.MidHash {
		log.Printf("hash normalized: %s -> %s", elem.MidHash, norm)
	}

	uids, err := ctx.tracer.CrackAuto(norm)
	if err != nil {
		color.Red("crack failed: %v", err)
		return true
	}
	if err := ctx.stats.Snapshot(norm); err != nil {
		log.Println("stats log:", err)
	}
	reportCandidates(norm, uids, ctx.tracer.Verifier, ctx.config.First)

	ctx.found = true
	if ctx.config.First {
		log.Println("first match traced, stopping")
		return false
	}
	return true
}

// walkHistory walks months backwards from today to the video's publish
// month, fetching every archived date segment.
func walkHistory(ctx *searchContext, cid int64, pubdate int64) {
	month := time.Now().Format("2006-01")
	end := firstMonth
	if pubdate > 0 {
		end = time.Unix(pubdate, 0).Format("2006-01")
		log.Println("walk ends at publish month:", end)
	}

	emptyStreak := 0
	for month >= end {
		dates, err := ctx.client.Index(cid, month)
		if err != nil {
			log.Println("index fetch failed:", err)
			return
		}

		if len(dates) == 0 {
			log.Println(month, "has no data")
			emptyStreak++
			if emptyStreak >= emptyMonthLimit {
				log.Printf("%d empty months in a row, stopping the walk", emptyMonthLimit)
				return
			}
		} else {
			emptyStreak = 0
			log.Printf("%s: %d archived dates", month, len(dates))
			for _, date := range dates {
				data, err := ctx.client.Segment(cid, date)
				if err != nil {
					log.Println("segment fetch failed:", err)
					continue
				}
				if err := dmproto.ParseSegment(data, ctx.handle); err != nil {
					log.Printf("segment %s parse failed: %v", date, err)
				}
				if ctx.config.First && ctx.found {
					return
				}
				time.Sleep(segmentDelay)
			}
		}

		t, err := time.Parse("2006-01", month)
		if err != nil {
			return
		}
		month = t.AddDate(0, -1, 0).Format("2006-01")
	}
	log.Println("reached the end month", end)
}

// scanRealtime downloads the anonymous XML feed and brute-forces matching
// records. The realtime path sticks to the legacy cracker: the feed only
// surfaces recent comments, overwhelmingly from legacy-band accounts.
func scanRealtime(ctx *searchContext, cid int64) {
	data, err := ctx.client.Realtime(cid)
	if err != nil {
		log.Println("realtime fetch failed:", err)
		return
	}
	items, err := history.ParseRealtime(data)
	if err != nil {
		log.Println(err)
		return
	}

	for i, item := range items {
		if i >= ctx.config.Limit {
			break
		}
		ctx.processed++
		if ctx.config.Search != "" && !strings.Contains(item.Content, ctx.config.Search) {
			continue
		}
		if item.MidHash == "" {
			continue
		}
		ctx.matched++
		ctx.foundAny = true

		uid, err := ctx.tracer.CrackLegacy(item.MidHash)
		if err != nil {
			color.Red("bad hash %q: %v", item.MidHash, err)
			continue
		}
		if err := ctx.stats.Snapshot(item.MidHash); err != nil {
			log.Println("stats log:", err)
		}
		if uid != 0 {
			fmt.Printf("%s (hash %s) -> UID %d\n", item.Content, item.MidHash, uid)
		} else {
			fmt.Printf("%s (hash %s) -> UID ???\n", item.Content, item.MidHash)
		}
		if ctx.config.First {
			return
		}
	}
}

// reportCandidates prints the candidate list, optionally confirming each
// against the existence oracle with a politeness delay.
func reportCandidates(hash string, uids []uint64, verifier trace.Verifier, firstOnly bool) {
	if len(uids) == 0 {
		color.Red("no UID matches fingerprint %s", hash)
		return
	}

	color.Green("fingerprint %s: %d candidate(s)", hash, len(uids))
	for i, uid := range uids {
		status := ""
		if verifier != nil {
			if i > 0 {
				time.Sleep(verifyDelay)
			}
			if ok, err := verifier.Exists(uid); err != nil {
				status = "  (unknown)"
			} else if ok {
				status = "  (exists)"
			} else {
				status = "  (absent)"
			}
		}
		fmt.Printf("  %d. UID %d%s\n", i+1, uid, status)
		fmt.Printf("     https://space.bilibili.com/%d\n", uid)
		if firstOnly && strings.HasSuffix(status, "(exists)") {
			log.Println("verified target found, skipping remaining candidates")
			return
		}
	}
}

func checkError(err error) {
	if err != nil {
		log.Fatalf("%+v", err)
	}
}
