package engine

import (
	"context"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/itohio/picolog/pkg/schedule"
	"github.com/itohio/picolog/pkg/store"
)

// Sensor reads the analog channel. Reads always succeed.
type Sensor interface {
	Read() sample.Record
}

// Signaler shows a blink code once.
type Signaler interface {
	Blink(n int)
}

// Button is the start/pause input. Sampling is blocked while it is pressed.
type Button interface {
	Pressed() bool
}

// Log is the persistent sample log.
type Log interface {
	Init() error
	InitConfig() (config.Record, error)
	Append(batch sample.Batch) error
	Remove() error
}

// Scheduler drives the sleep/wake cycle.
type Scheduler interface {
	Seed(st schedule.State)
	Sleep() error
	Wait(ctx context.Context) error
	Wake() error
	Offset() uint32
}

// Observer receives loop events, e.g. for metrics.
type Observer interface {
	// OnSample is called after a sample was buffered. fill is the number of
	// buffered samples, zero when the sample completed a batch.
	OnSample(r sample.Record, fill, capacity int)
	// OnFlush is called after a batch was handed to the log.
	OnFlush(records int, err error)
	// OnWake is called after the scheduler resumed; offset is the alarm that fired.
	OnWake(offset uint32)
}

type nopObserver struct{}

func (nopObserver) OnSample(sample.Record, int, int) {}
func (nopObserver) OnFlush(int, error)               {}
func (nopObserver) OnWake(uint32)                    {}

var (
	_ Log       = (*store.Store)(nil)
	_ Scheduler = (*schedule.Scheduler)(nil)
)
