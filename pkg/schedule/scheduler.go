package schedule

import (
	"context"
	"fmt"
	"time"
)

// RTC is the real-time clock that wakes the processor.
type RTC interface {
	// SetTime sets the clock.
	SetTime(t time.Time) error
	// SetAlarm arms the alarm, replacing any armed one. fn is called from the
	// alarm context when the clock matches.
	SetAlarm(m Match, fn func()) error
}

// Power parks and restores the processor around a sleep.
type Power interface {
	// Park stops the clocks and peripherals not needed while asleep.
	Park()
	// Restore brings back what Park disabled.
	Restore()
}

// Phase is the scheduler state.
type Phase uint8

const (
	Active Phase = iota
	Asleep
)

func (p Phase) String() string {
	if p == Asleep {
		return "asleep"
	}
	return "active"
}

// DefaultPollPeriod is how long Wait idles between checks of the wake flag.
const DefaultPollPeriod = time.Millisecond

// Scheduler owns the sleep/wake cycle of the sampling loop.
type Scheduler struct {
	rtc   RTC
	power Power
	idle  func()

	state  State
	seeded bool
	offset uint32
	alarm  Match
	phase  Phase
	flag   WakeFlag
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithIdle sets the function called between polls of the wake flag.
func WithIdle(idle func()) Option {
	return func(s *Scheduler) {
		s.idle = idle
	}
}

type nopPower struct{}

func (nopPower) Park()    {}
func (nopPower) Restore() {}

// New creates a scheduler in the Active phase. power may be nil.
func New(rtc RTC, power Power, opts ...Option) *Scheduler {
	if power == nil {
		power = nopPower{}
	}
	s := &Scheduler{
		rtc:   rtc,
		power: power,
		idle:  func() { time.Sleep(DefaultPollPeriod) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed sets the schedule. The clock is set from the epoch on the next Sleep.
func (s *Scheduler) Seed(st State) {
	s.state = st
	s.seeded = false
	s.offset = Offset(st.Time)
}

// Sleep moves from Active to Asleep: it sets the clock on the first call after
// Seed, advances the alarm offset by one interval, arms the alarm and parks.
func (s *Scheduler) Sleep() error {
	if s.phase != Active {
		return fmt.Errorf("cannot sleep while %s", s.phase)
	}

	if !s.seeded {
		if err := s.rtc.SetTime(s.state.Start()); err != nil {
			return fmt.Errorf("failed to set clock: %w", err)
		}
		s.offset = Offset(s.state.Time)
		s.seeded = true
	}

	s.offset = Advance(s.offset, s.state.Interval)
	s.alarm = MatchFor(s.offset, s.state.Interval)

	s.flag.Clear()
	if err := s.rtc.SetAlarm(s.alarm, s.flag.Set); err != nil {
		return fmt.Errorf("failed to arm alarm %s: %w", s.alarm, err)
	}

	s.power.Park()
	s.phase = Asleep
	return nil
}

// Wait polls the wake flag until the alarm fires or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for !s.flag.Awake() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.idle()
	}
	return nil
}

// Wake moves from Asleep back to Active.
func (s *Scheduler) Wake() error {
	if s.phase != Asleep {
		return fmt.Errorf("cannot wake while %s", s.phase)
	}
	s.power.Restore()
	s.flag.Clear()
	s.phase = Active
	return nil
}

// Phase returns the current state.
func (s *Scheduler) Phase() Phase {
	return s.phase
}

// Offset returns the alarm offset in seconds since midnight.
func (s *Scheduler) Offset() uint32 {
	return s.offset
}

// Alarm returns the last armed alarm.
func (s *Scheduler) Alarm() Match {
	return s.alarm
}

// State returns the seeded schedule.
func (s *Scheduler) State() State {
	return s.state
}

// Flag exposes the wake flag.
func (s *Scheduler) Flag() *WakeFlag {
	return &s.flag
}
