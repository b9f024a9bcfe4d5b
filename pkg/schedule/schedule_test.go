package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itohio/picolog/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRTC struct {
	times  []time.Time
	alarms []Match
	fire   func()
	err    error
}

func (r *fakeRTC) SetTime(t time.Time) error {
	r.times = append(r.times, t)
	return nil
}

func (r *fakeRTC) SetAlarm(m Match, fn func()) error {
	if r.err != nil {
		return r.err
	}
	r.alarms = append(r.alarms, m)
	r.fire = fn
	return nil
}

type countingPower struct {
	parks, restores int
}

func (p *countingPower) Park()    { p.parks++ }
func (p *countingPower) Restore() { p.restores++ }

func TestOffset(t *testing.T) {
	assert.Equal(t, uint32(0), Offset(0))
	assert.Equal(t, uint32(86390), Offset(235950))
	assert.Equal(t, uint32(45296), Offset(123456))
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		offset   uint32
		interval uint32
		want     uint32
	}{
		{name: "within day", offset: 100, interval: 15, want: 115},
		{name: "wraps past midnight", offset: 86390, interval: 20, want: 10},
		{name: "exactly midnight", offset: 86385, interval: 15, want: 0},
		{name: "full day", offset: 3600, interval: 86400, want: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.offset, tt.interval))
		})
	}
}

func TestMatchFor(t *testing.T) {
	tests := []struct {
		name     string
		offset   uint32
		interval uint32
		want     Match
	}{
		{name: "seconds only", offset: 10, interval: 20, want: Match{DontCare, DontCare, 10}},
		{name: "minutes and seconds", offset: 3723, interval: 120, want: Match{DontCare, 2, 3}},
		{name: "minute boundary", offset: 3723, interval: 60, want: Match{DontCare, 2, 3}},
		{name: "all fields", offset: 45296, interval: 7200, want: Match{12, 34, 56}},
		{name: "hour boundary", offset: 45296, interval: 3600, want: Match{12, 34, 56}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchFor(tt.offset, tt.interval))
		})
	}
}

func TestMatch_Next(t *testing.T) {
	day := func(h, m, s, ns int) time.Time {
		return time.Date(2022, 11, 8, h, m, s, ns, time.UTC)
	}

	tests := []struct {
		name  string
		match Match
		after time.Time
		want  time.Time
	}{
		{
			name:  "next day wrap",
			match: Match{DontCare, DontCare, 10},
			after: day(23, 59, 50, 0),
			want:  time.Date(2022, 11, 9, 0, 0, 10, 0, time.UTC),
		},
		{
			name:  "strictly after",
			match: Match{12, 34, 56},
			after: day(12, 34, 56, 0),
			want:  time.Date(2022, 11, 9, 12, 34, 56, 0, time.UTC),
		},
		{
			name:  "fraction of a second before",
			match: Match{12, 34, 56},
			after: day(12, 34, 55, 500000000),
			want:  day(12, 34, 56, 0),
		},
		{
			name:  "next hour",
			match: Match{DontCare, 5, 0},
			after: day(10, 30, 0, 0),
			want:  day(11, 5, 0, 0),
		},
		{
			name:  "never",
			match: Match{25, 0, 0},
			after: day(10, 30, 0, 0),
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.match.Next(tt.after))
		})
	}
}

func TestMatch_String(t *testing.T) {
	assert.Equal(t, "**:02:03", Match{DontCare, 2, 3}.String())
	assert.Equal(t, "12:34:56", Match{12, 34, 56}.String())
}

func TestState(t *testing.T) {
	st := FromRecord(config.Record{EpochDate: 20221108, EpochTime: 235950, Interval: 20})
	require.NoError(t, st.Validate())
	assert.Equal(t, time.Date(2022, 11, 8, 23, 59, 50, 0, time.UTC), st.Start())

	assert.Error(t, State{Date: 20221108, Time: 0, Interval: 0}.Validate())
	assert.Error(t, State{Date: 20221108, Time: 0, Interval: 86401}.Validate())
	assert.Error(t, State{Date: 20220230, Time: 0, Interval: 1}.Validate())
	assert.Error(t, State{Date: 20220101, Time: 240000, Interval: 1}.Validate())
}

func TestScheduler_FirstAlarmWrapsMidnight(t *testing.T) {
	rtc := &fakeRTC{}
	s := New(rtc, nil)
	s.Seed(State{Date: 20221108, Time: 235950, Interval: 20})

	require.NoError(t, s.Sleep())

	require.Len(t, rtc.times, 1)
	assert.Equal(t, time.Date(2022, 11, 8, 23, 59, 50, 0, time.UTC), rtc.times[0])
	assert.Equal(t, uint32(10), s.Offset())
	assert.Equal(t, Match{DontCare, DontCare, 10}, s.Alarm())
	assert.Equal(t, Asleep, s.Phase())
}

func TestScheduler_OffsetAfterCycles(t *testing.T) {
	tests := []struct {
		epoch    uint32
		interval uint32
		cycles   uint32
	}{
		{epoch: 0, interval: 15, cycles: 10},
		{epoch: 235950, interval: 20, cycles: 7},
		{epoch: 120000, interval: 3600, cycles: 30},
		{epoch: 235959, interval: 86400, cycles: 3},
		{epoch: 10101, interval: 7, cycles: 50000},
	}

	for _, tt := range tests {
		rtc := &fakeRTC{}
		power := &countingPower{}
		s := New(rtc, power, WithIdle(func() {}))
		s.Seed(State{Date: 20220101, Time: tt.epoch, Interval: tt.interval})

		for n := uint32(0); n < tt.cycles; n++ {
			require.NoError(t, s.Sleep())
			rtc.fire()
			require.NoError(t, s.Wait(context.Background()))
			require.NoError(t, s.Wake())
		}

		want := (Offset(tt.epoch) + tt.cycles*tt.interval) % SecondsPerDay
		assert.Equal(t, want, s.Offset(), "epoch %06d interval %d", tt.epoch, tt.interval)
		assert.Len(t, rtc.times, 1)
		assert.Equal(t, int(tt.cycles), power.parks)
		assert.Equal(t, int(tt.cycles), power.restores)
	}
}

func TestScheduler_ReseedSetsClockAgain(t *testing.T) {
	rtc := &fakeRTC{}
	s := New(rtc, nil)
	s.Seed(State{Date: 20220101, Time: 0, Interval: 60})
	require.NoError(t, s.Sleep())
	rtc.fire()
	require.NoError(t, s.Wake())

	s.Seed(State{Date: 20230101, Time: 100, Interval: 60})
	require.NoError(t, s.Sleep())

	assert.Len(t, rtc.times, 2)
	assert.Equal(t, uint32(120), s.Offset())
}

func TestScheduler_PhaseErrors(t *testing.T) {
	rtc := &fakeRTC{}
	s := New(rtc, nil)
	s.Seed(State{Date: 20220101, Time: 0, Interval: 15})

	assert.Error(t, s.Wake())
	require.NoError(t, s.Sleep())
	assert.Error(t, s.Sleep())
	require.NoError(t, s.Wake())
	assert.Equal(t, Active, s.Phase())
}

func TestScheduler_AlarmError(t *testing.T) {
	rtc := &fakeRTC{err: errors.New("rtc not running")}
	s := New(rtc, nil)
	s.Seed(State{Date: 20220101, Time: 0, Interval: 15})

	err := s.Sleep()
	assert.ErrorIs(t, err, rtc.err)
	assert.Equal(t, Active, s.Phase())
}

func TestScheduler_WaitCancelled(t *testing.T) {
	s := New(&fakeRTC{}, nil)
	s.Seed(State{Date: 20220101, Time: 0, Interval: 15})
	require.NoError(t, s.Sleep())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
	assert.False(t, s.Flag().Awake())
}

func TestScheduler_WakeFromAlarmContext(t *testing.T) {
	rtc := &fakeRTC{}
	s := New(rtc, nil)
	s.Seed(State{Date: 20220101, Time: 0, Interval: 15})
	require.NoError(t, s.Sleep())

	go func() {
		time.Sleep(10 * time.Millisecond)
		rtc.fire()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	require.NoError(t, s.Wake())
	assert.False(t, s.Flag().Awake())
}

func TestWakeFlag(t *testing.T) {
	var f WakeFlag
	assert.False(t, f.Awake())
	f.Set()
	assert.True(t, f.Awake())
	f.Clear()
	assert.False(t, f.Awake())
}

func TestSimRTC_Alarm(t *testing.T) {
	rtc := NewSimRTC(100)
	defer rtc.Stop()

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rtc.SetTime(start))

	fired := make(chan time.Time, 1)
	require.NoError(t, rtc.SetAlarm(Match{DontCare, DontCare, 20}, func() {
		fired <- rtc.Now()
	}))

	select {
	case at := <-fired:
		assert.WithinDuration(t, start.Add(20*time.Second), at, 5*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("alarm did not fire")
	}
}

func TestSimRTC_Rearm(t *testing.T) {
	rtc := NewSimRTC(1)
	defer rtc.Stop()
	require.NoError(t, rtc.SetTime(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	first := make(chan struct{}, 1)
	require.NoError(t, rtc.SetAlarm(Match{DontCare, DontCare, 1}, func() { first <- struct{}{} }))
	require.NoError(t, rtc.SetAlarm(Match{DontCare, 30, 0}, func() {}))

	select {
	case <-first:
		t.Fatal("replaced alarm fired")
	case <-time.After(1500 * time.Millisecond):
	}

	assert.Error(t, rtc.SetAlarm(Match{25, 0, 0}, func() {}))
}

func TestSimRTC_LateAlarmFiresAtOnce(t *testing.T) {
	rtc := NewSimRTC(1000)
	defer rtc.Stop()
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rtc.SetTime(start))

	// 20ms real is 20s simulated, well past the alarm second.
	time.Sleep(20 * time.Millisecond)

	fired := make(chan time.Time, 1)
	require.NoError(t, rtc.SetAlarm(Match{DontCare, DontCare, 1}, func() { fired <- rtc.Now() }))

	select {
	case at := <-fired:
		assert.False(t, at.Before(start.Add(time.Second)))
		assert.Less(t, at.Sub(start), 30*time.Second)
	case <-time.After(time.Second):
		t.Fatal("late alarm did not fire")
	}
}

// recordingRTC notes the clock reading each time an alarm fires.
type recordingRTC struct {
	*SimRTC
	mu    sync.Mutex
	fired []time.Time
}

func (r *recordingRTC) SetAlarm(m Match, fn func()) error {
	return r.SimRTC.SetAlarm(m, func() {
		r.mu.Lock()
		r.fired = append(r.fired, r.Now())
		r.mu.Unlock()
		fn()
	})
}

func TestScheduler_SimRTCKeepsInterval(t *testing.T) {
	tests := []struct {
		name     string
		scale    float64
		interval uint32
		cycles   int
	}{
		{name: "1s at x1000", scale: 1000, interval: 1, cycles: 20},
		{name: "15s at x1000", scale: 1000, interval: 15, cycles: 6},
		{name: "1s at x10000", scale: 10000, interval: 1, cycles: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rtc := &recordingRTC{SimRTC: NewSimRTC(tt.scale)}
			defer rtc.Stop()
			start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

			s := New(rtc, nil)
			s.Seed(State{Date: 20220101, Time: 0, Interval: tt.interval})

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for i := 0; i < tt.cycles; i++ {
				require.NoError(t, s.Sleep())
				require.NoError(t, s.Wait(ctx))
				require.NoError(t, s.Wake())
			}

			assert.Equal(t, uint32(tt.cycles)*tt.interval, s.Offset())

			rtc.mu.Lock()
			defer rtc.mu.Unlock()
			require.Len(t, rtc.fired, tt.cycles)
			for i, at := range rtc.fired {
				want := start.Add(time.Duration(i+1) * time.Duration(tt.interval) * time.Second)
				assert.False(t, at.Before(want), "cycle %d fired at %s before %s", i, at, want)
				assert.Less(t, at.Sub(want), 10*time.Second, "cycle %d fired at %s", i, at)
			}
		})
	}
}
