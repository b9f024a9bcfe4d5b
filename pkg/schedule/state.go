package schedule

import (
	"fmt"
	"time"

	"github.com/itohio/picolog/pkg/config"
)

// SecondsPerDay is the period of the alarm offset.
const SecondsPerDay = 86400

// State is the schedule seed: the epoch the first alarm is computed from and
// the sample interval.
type State struct {
	Date     uint32 // yyyymmdd
	Time     uint32 // hhmmss
	Interval uint32 // seconds
}

// FromRecord extracts the schedule from a logger configuration record.
func FromRecord(rec config.Record) State {
	return State{
		Date:     rec.EpochDate,
		Time:     rec.EpochTime,
		Interval: rec.Interval,
	}
}

// Validate checks the epoch and that 0 < Interval <= 86400.
func (s State) Validate() error {
	if !config.ValidDate(s.Date) {
		return fmt.Errorf("invalid epoch date: %08d", s.Date)
	}
	if !config.ValidTime(s.Time) {
		return fmt.Errorf("invalid epoch time: %06d", s.Time)
	}
	if !config.ValidInterval(s.Interval) {
		return fmt.Errorf("invalid interval: %d", s.Interval)
	}
	return nil
}

// Start returns the epoch as a UTC timestamp.
func (s State) Start() time.Time {
	return time.Date(
		int(s.Date/10000), time.Month(s.Date/100%100), int(s.Date%100),
		int(s.Time/10000), int(s.Time/100%100), int(s.Time%100),
		0, time.UTC)
}

// Offset converts an hhmmss time of day into seconds since midnight.
func Offset(hms uint32) uint32 {
	return hms/10000*3600 + hms/100%100*60 + hms%100
}

// Advance rolls an alarm offset forward by interval seconds, wrapping at midnight.
func Advance(offset, interval uint32) uint32 {
	return (offset + interval) % SecondsPerDay
}
