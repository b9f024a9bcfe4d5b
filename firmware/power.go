//go:build tinygo

package main

import (
	"time"

	"github.com/itohio/picolog/pkg/schedule"
)

var _ schedule.Power = (*power)(nil)

// power parks the logger between samples. TinyGo has no dormant mode that
// wakes on the RTC alarm, so the core sleeps in short timer naps instead.
type power struct {
	status led
}

// Park turns the status LED off. The sensor pin stays in analog mode, which
// keeps its digital input buffer disabled.
func (p *power) Park() {
	p.status.Set(false)
}

func (p *power) Restore() {}

// nap idles the core until the next wake flag check.
func nap() {
	time.Sleep(SLEEP_POLL_MS * time.Millisecond)
}
