package schedule

import (
	"fmt"
	"time"
)

// DontCare marks an alarm field that is ignored when matching.
const DontCare int8 = -1

// Match holds the RTC alarm-match fields.
type Match struct {
	Hour   int8
	Minute int8
	Second int8
}

// MatchFor decomposes an alarm offset into match fields. Fields coarser than
// the interval can reach are left as DontCare: the hour for intervals under an
// hour and the minute for intervals under a minute.
func MatchFor(offset, interval uint32) Match {
	offset %= SecondsPerDay
	m := Match{
		Hour:   int8(offset / 3600),
		Minute: int8(offset / 60 % 60),
		Second: int8(offset % 60),
	}
	if interval < 3600 {
		m.Hour = DontCare
	}
	if interval < 60 {
		m.Minute = DontCare
	}
	return m
}

// Matches reports whether the time of day of t matches the alarm.
func (m Match) Matches(t time.Time) bool {
	h, mm, s := t.Clock()
	return m.matches(uint32(h*3600 + mm*60 + s))
}

func (m Match) matches(sod uint32) bool {
	if m.Hour != DontCare && uint32(m.Hour) != sod/3600 {
		return false
	}
	if m.Minute != DontCare && uint32(m.Minute) != sod/60%60 {
		return false
	}
	if m.Second != DontCare && uint32(m.Second) != sod%60 {
		return false
	}
	return true
}

// Next returns the first whole second strictly after the given time that
// matches the alarm. A match that can never occur returns the zero time.
func (m Match) Next(after time.Time) time.Time {
	base := after.Truncate(time.Second)
	h, mm, s := base.Clock()
	sod := uint32(h*3600 + mm*60 + s)

	for d := uint32(1); d <= SecondsPerDay; d++ {
		if m.matches((sod + d) % SecondsPerDay) {
			return base.Add(time.Duration(d) * time.Second)
		}
	}
	return time.Time{}
}

func (m Match) String() string {
	return fmt.Sprintf("%s:%s:%s", field(m.Hour), field(m.Minute), field(m.Second))
}

func field(v int8) string {
	if v == DontCare {
		return "**"
	}
	return fmt.Sprintf("%02d", v)
}
