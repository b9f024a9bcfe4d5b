package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/itohio/picolog/pkg/schedule"
	"github.com/itohio/picolog/pkg/store"
)

// CodeOK is the blink code for a successful sample and for the blocked
// indicator. Store failures blink CodeFor(err).
const CodeOK = 1

const (
	DefaultSettle     = time.Second
	DefaultBlockPause = 250 * time.Millisecond
	DefaultHaltPause  = time.Second
)

// CodeFor returns the blink code for the outcome of a store operation:
// 1 ok, 2 full, 3 mount, 4 file, 5 format.
func CodeFor(err error) int {
	return int(store.KindOf(err)) + CodeOK
}

// Deps are the collaborators of the sampling loop. Button may be nil.
type Deps struct {
	Sensor    Sensor
	Log       Log
	Scheduler Scheduler
	Signal    Signaler
	Button    Button
}

// Engine is the sampling loop. It owns the sample buffer; all of its state
// lives in the Engine value.
type Engine struct {
	deps Deps
	buf  *sample.Buffer
	obs  Observer

	delay      func(time.Duration)
	settle     time.Duration
	blockPause time.Duration
	haltPause  time.Duration

	cfg     config.Record
	started bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports loop events to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.obs = o
	}
}

// WithDelay replaces time.Sleep for the settle, block and halt pauses.
func WithDelay(delay func(time.Duration)) Option {
	return func(e *Engine) {
		e.delay = delay
	}
}

// WithSettle sets the pause before the first sample of a session.
func WithSettle(d time.Duration) Option {
	return func(e *Engine) {
		e.settle = d
	}
}

// WithBlockPause sets the pause between checks of a pressed button.
func WithBlockPause(d time.Duration) Option {
	return func(e *Engine) {
		e.blockPause = d
	}
}

// New creates an Engine.
func New(deps Deps, opts ...Option) (*Engine, error) {
	if deps.Sensor == nil || deps.Log == nil || deps.Scheduler == nil || deps.Signal == nil {
		return nil, fmt.Errorf("sensor, log, scheduler and signal are required")
	}

	e := &Engine{
		deps:       deps,
		buf:        sample.NewBuffer(),
		obs:        nopObserver{},
		delay:      time.Sleep,
		settle:     DefaultSettle,
		blockPause: DefaultBlockPause,
		haltPause:  DefaultHaltPause,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Boot prepares the log volume and loads the configuration record. An error
// is fatal: the caller is expected to Halt with CodeFor(err).
func (e *Engine) Boot() (config.Record, error) {
	if err := e.deps.Log.Init(); err != nil {
		return config.Record{}, fmt.Errorf("failed to initialize log: %w", err)
	}
	cfg, err := e.deps.Log.InitConfig()
	if err != nil {
		return config.Record{}, fmt.Errorf("failed to initialize configuration: %w", err)
	}
	e.cfg = cfg
	return cfg, nil
}

// Start begins a sampling session: it sizes the buffer for the interval, seeds
// the schedule from the epoch and, unless appending, removes the previous log.
// A missing log is not an error.
func (e *Engine) Start(cfg config.Record) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.delay(e.settle)

	e.cfg = cfg
	size := e.buf.Configure(cfg.Interval)
	e.deps.Scheduler.Seed(schedule.FromRecord(cfg))

	if !cfg.Append {
		if err := e.deps.Log.Remove(); err != nil && !errors.Is(err, store.ErrFile) {
			log.Printf("Failed to remove previous log: %v", err)
		}
	}

	e.started = true
	log.Printf("Sampling every %ds, %d samples per write, append=%v", cfg.Interval, size, cfg.Append)
	return nil
}

// Step runs one cycle of the loop: wait while the button is pressed, take a
// sample, flush a full batch, blink the outcome, then sleep until the alarm.
// Store failures are signalled and logged but do not stop the loop; Step only
// fails when the scheduler does or ctx ends.
func (e *Engine) Step(ctx context.Context) error {
	if !e.started {
		return fmt.Errorf("sampling not started")
	}

	for e.deps.Button != nil && e.deps.Button.Pressed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.deps.Signal.Blink(CodeOK)
		e.delay(e.blockPause)
	}

	r := e.deps.Sensor.Read()
	batch, full := e.buf.Add(r)
	e.obs.OnSample(r, e.buf.Len(), e.buf.Cap())

	var err error
	if full {
		err = e.deps.Log.Append(batch)
		e.obs.OnFlush(len(batch), err)
		if err != nil {
			log.Printf("Dropped %d samples: %v", len(batch), err)
		}
	}
	e.deps.Signal.Blink(CodeFor(err))

	if err := e.deps.Scheduler.Sleep(); err != nil {
		return fmt.Errorf("failed to sleep: %w", err)
	}
	werr := e.deps.Scheduler.Wait(ctx)
	if err := e.deps.Scheduler.Wake(); err != nil {
		return fmt.Errorf("failed to wake: %w", err)
	}
	if werr != nil {
		return werr
	}

	e.obs.OnWake(e.deps.Scheduler.Offset())
	return nil
}

// Run starts a session with cfg and steps until ctx ends or the scheduler fails.
func (e *Engine) Run(ctx context.Context, cfg config.Record) error {
	if err := e.Start(cfg); err != nil {
		return err
	}
	for {
		if err := e.Step(ctx); err != nil {
			return err
		}
	}
}

// Halt repeats the blink code until ctx ends. On the device ctx never ends.
func (e *Engine) Halt(ctx context.Context, code int) {
	for ctx.Err() == nil {
		e.deps.Signal.Blink(code)
		e.delay(e.haltPause)
	}
}

// ReadADC takes a single reading outside the loop.
func (e *Engine) ReadADC() sample.Record {
	return e.deps.Sensor.Read()
}

// Config returns the configuration of the last Boot or Start.
func (e *Engine) Config() config.Record {
	return e.cfg
}

// Buffered returns the number of samples waiting for the next write.
func (e *Engine) Buffered() int {
	return e.buf.Len()
}
