package schedule

import "sync/atomic"

// WakeFlag is set by the alarm callback and polled by the sampling loop.
// Set publishes with release semantics and Awake observes with acquire
// semantics, so state written before Set is visible after Awake returns true.
type WakeFlag struct {
	v atomic.Bool
}

// Set marks the alarm as expired. Safe to call from the alarm context.
func (f *WakeFlag) Set() {
	f.v.Store(true)
}

// Clear resets the flag before the next alarm is armed.
func (f *WakeFlag) Clear() {
	f.v.Store(false)
}

// Awake reports whether the alarm has fired since the last Clear.
func (f *WakeFlag) Awake() bool {
	return f.v.Load()
}
