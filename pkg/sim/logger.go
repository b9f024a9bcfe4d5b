package sim

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/console"
	"github.com/itohio/picolog/pkg/engine"
	"github.com/itohio/picolog/pkg/metrics"
	"github.com/itohio/picolog/pkg/schedule"
	"github.com/itohio/picolog/pkg/store"
)

// Logger is a complete data logger running on the host: the sampling engine
// and the command console on top of a simulated clock and sensor.
type Logger struct {
	Store   *store.Store
	Engine  *engine.Engine
	RTC     *schedule.SimRTC
	Sensor  *Sensor
	LED     *LED
	Power   *Power
	Metrics *metrics.Metrics
}

// NewLogger assembles a logger on vol.
func NewLogger(vol store.Volume, cfg *config.Config) (*Logger, error) {
	l := &Logger{
		Store: store.New(vol),
		RTC:   schedule.NewSimRTC(cfg.Sim.TimeScale),
		LED:   &LED{},
		Power: &Power{},
	}
	l.Sensor = NewSensor(l.RTC.Now, cfg.Sim, cfg.ADC)

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	l.Metrics = m

	e, err := engine.New(engine.Deps{
		Sensor:    l.Sensor,
		Log:       l.Store,
		Scheduler: schedule.New(l.RTC, l.Power, schedule.WithIdle(idleFor(cfg.Sim.TimeScale))),
		Signal:    l.LED,
		Button:    FileButton{Path: cfg.Sim.PauseFile},
	},
		engine.WithObserver(m),
		engine.WithSettle(cfg.Sim.Settle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	l.Engine = e

	return l, nil
}

// minPollPeriod bounds how fast a sped up wake poll spins.
const minPollPeriod = 10 * time.Microsecond

// pollPeriod returns the real time between wake flag checks so one poll
// spans the same simulated time at any scale.
func pollPeriod(scale float64) time.Duration {
	if scale <= 1 {
		return schedule.DefaultPollPeriod
	}
	d := time.Duration(float64(schedule.DefaultPollPeriod) / scale)
	if d < minPollPeriod {
		d = minPollPeriod
	}
	return d
}

func idleFor(scale float64) func() {
	d := pollPeriod(scale)
	return func() { time.Sleep(d) }
}

// Serve boots the logger and runs the console on r and w until EOF or until
// ctx ends. A failed boot blinks its code until ctx ends and returns the error.
func (l *Logger) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	defer l.RTC.Stop()

	rec, err := l.Engine.Boot()
	if err != nil {
		log.Printf("Boot failed: %v", err)
		l.Engine.Halt(ctx, engine.CodeFor(err))
		return err
	}

	c := console.New(l.Engine, l.Store, rec, console.WithStats(l.Metrics.Report))
	return c.Serve(ctx, r, w)
}
