package schedule

import (
	"fmt"
	"time"
)

// Timeline tracks alarm times against a monotonic clock for an RTC whose alarm
// only takes a whole-second delay from now. Each alarm is measured from the
// previous one, so the time spent awake between alarms does not accumulate.
type Timeline struct {
	now   func() time.Time
	clock time.Time // RTC reading at mark
	mark  time.Time
}

// NewTimeline creates a timeline on the monotonic clock now; nil means
// time.Now.
func NewTimeline(now func() time.Time) *Timeline {
	if now == nil {
		now = time.Now
	}
	return &Timeline{now: now}
}

// Set records that the RTC reads clock at this moment.
func (t *Timeline) Set(clock time.Time) {
	t.clock = clock
	t.mark = t.now()
}

// Next returns the match after the previous alarm and the delay from now
// until it, rounded to whole seconds. A zero delay means the alarm is due.
func (t *Timeline) Next(m Match) (time.Time, time.Duration, error) {
	next := m.Next(t.clock)
	if next.IsZero() {
		return time.Time{}, 0, fmt.Errorf("alarm %s never matches", m)
	}

	due := t.mark.Add(next.Sub(t.clock))
	delay := due.Sub(t.now()).Round(time.Second)
	if delay < 0 {
		delay = 0
	}

	t.clock, t.mark = next, due
	return next, delay, nil
}
