package schedule

import (
	"fmt"
	"sync"
	"time"
)

// SimRTC is a host clock for simulation. It runs off the wall clock, sped up
// by a scale factor, and fires alarms from a timer goroutine.
type SimRTC struct {
	mu    sync.Mutex
	scale float64
	base  time.Time // simulated time at wall
	wall  time.Time
	timer *time.Timer

	// anchor is the last time set or alarm fired. Alarms match from it so a
	// slow waker never skips a period.
	anchor time.Time
}

var _ RTC = (*SimRTC)(nil)

// NewSimRTC creates a clock set to the current UTC time. A scale of 60 runs a
// simulated minute every real second; scale <= 0 means 1.
func NewSimRTC(scale float64) *SimRTC {
	if scale <= 0 {
		scale = 1
	}
	now := time.Now()
	return &SimRTC{
		scale:  scale,
		base:   now.UTC(),
		wall:   now,
		anchor: now.UTC(),
	}
}

// Now returns the simulated time.
func (r *SimRTC) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nowLocked()
}

func (r *SimRTC) nowLocked() time.Time {
	elapsed := time.Since(r.wall)
	return r.base.Add(time.Duration(float64(elapsed) * r.scale))
}

// SetTime implements RTC.
func (r *SimRTC) SetTime(t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = t
	r.wall = time.Now()
	r.anchor = t
	return nil
}

// SetAlarm implements RTC. The next match is taken after the last time set or
// alarm fired, not after the current reading. An alarm that is already due
// fires at once. The clock reads exactly the alarm time when fn runs.
func (r *SimRTC) SetAlarm(m Match, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}

	at := m.Next(r.anchor)
	if at.IsZero() {
		return fmt.Errorf("alarm %s never matches", m)
	}
	delay := time.Duration(float64(at.Sub(r.nowLocked())) / r.scale)
	if delay < 0 {
		delay = 0
	}

	r.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		r.base = at
		r.wall = time.Now()
		r.anchor = at
		r.mu.Unlock()
		fn()
	})
	return nil
}

// Stop disarms a pending alarm.
func (r *SimRTC) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
