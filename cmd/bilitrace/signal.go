//go:build !windows

package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rwangrwang31/bilitrace/crack"
)

func init() {
	go watchSignals()
}

// watchSignals dumps the crack counters on SIGUSR1, so a long scan can be
// inspected from another terminal without interrupting it.
func watchSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)

	for range ch {
		snmp := crack.DefaultSnmp.Copy()
		names := snmp.Header()
		values := snmp.ToSlice()
		pairs := make([]string, len(names))
		for i := range names {
			pairs[i] = names[i] + "=" + values[i]
		}
		log.Println("crack stats:", strings.Join(pairs, " "))
	}
}
