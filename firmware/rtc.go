//go:build tinygo

package main

import (
	"machine"
	"time"

	"github.com/itohio/picolog/pkg/schedule"
)

var _ schedule.RTC = (*picoRTC)(nil)

// picoRTC drives the RP2040 real-time clock. The RTC keeps running while the
// core sleeps; its alarm is armed as a one-shot delay to the next match.
type picoRTC struct {
	line *schedule.Timeline
}

func newPicoRTC() *picoRTC {
	return &picoRTC{line: schedule.NewTimeline(time.Now)}
}

func (r *picoRTC) SetTime(t time.Time) error {
	r.line.Set(t)
	return machine.RTC.SetTime(t)
}

func (r *picoRTC) SetAlarm(m schedule.Match, fn func()) error {
	_, delay, err := r.line.Next(m)
	if err != nil {
		return err
	}
	if delay == 0 {
		fn()
		return nil
	}
	return machine.RTC.SetInterrupt(uint32(delay/time.Second), false, fn)
}
