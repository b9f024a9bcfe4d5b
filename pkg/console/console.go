package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/dump"
	"github.com/itohio/picolog/pkg/engine"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/itohio/picolog/pkg/store"
)

// Command names understood by the console.
const (
	CmdSample      = "sample"
	CmdDump        = "dump"
	CmdRemove      = "remove"
	CmdFormat      = "format"
	CmdCheckADC    = "checkadc"
	CmdSetDate     = "set_date"
	CmdSetTime     = "set_time"
	CmdSetInterval = "set_interval"
	CmdSetAppend   = "set_append"
	CmdTest        = "test"
	CmdStats       = "stats"
)

// Responses.
const (
	Ready   = "ready"
	OK      = "OK"
	Unknown = "???"
)

// Sampler runs the sampling loop.
type Sampler interface {
	Run(ctx context.Context, cfg config.Record) error
	ReadADC() sample.Record
}

// Log is the part of the store the console operates on.
type Log interface {
	Dump(fn func(chunk sample.Batch) error) (int64, error)
	Remove() error
	Format() error
	SaveConfig(rec config.Record) error
}

var (
	_ Sampler = (*engine.Engine)(nil)
	_ Log     = (*store.Store)(nil)
)

// Console dispatches line commands of the form "<cmd> [<par>]" and writes one
// response line per command. dump writes the log followed by a trailer.
type Console struct {
	sampler Sampler
	log     Log
	cfg     config.Record
	stats   func(w io.Writer) error
}

// Option configures a Console.
type Option func(*Console)

// WithStats enables the stats command.
func WithStats(report func(w io.Writer) error) Option {
	return func(c *Console) {
		c.stats = report
	}
}

// New creates a console operating on the configuration loaded at boot.
func New(sampler Sampler, l Log, cfg config.Record, opts ...Option) *Console {
	c := &Console{
		sampler: sampler,
		log:     l,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the current configuration record.
func (c *Console) Config() config.Record {
	return c.cfg
}

// Serve greets with "ready" and executes commands read from r until EOF or
// until ctx ends. A sample command does not return before ctx ends.
func (c *Console) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	if _, err := fmt.Fprintln(w, Ready); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.Execute(ctx, w, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Execute runs a single command line. The returned error is a write error or
// the end of ctx; command failures are reported on w.
func (c *Console) Execute(ctx context.Context, w io.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd := fields[0]

	var (
		par    uint64
		parErr error
	)
	if len(fields) > 1 {
		par, parErr = strconv.ParseUint(fields[1], 10, 32)
	}

	switch cmd {
	case CmdSample:
		return c.sample(ctx, w)
	case CmdDump:
		return c.dump(w)
	case CmdRemove:
		return reply(w, c.log.Remove(), "error: no data file")
	case CmdFormat:
		return c.format(w)
	case CmdCheckADC:
		_, err := fmt.Fprintf(w, "0x%04x\n", uint16(c.sampler.ReadADC()))
		return err
	case CmdTest:
		_, err := fmt.Fprintf(w, "cmd=%s par=%d\n", cmd, par)
		return err
	case CmdStats:
		if c.stats == nil {
			return writeLine(w, Unknown)
		}
		return c.stats(w)
	case CmdSetDate, CmdSetTime, CmdSetInterval, CmdSetAppend:
		if parErr != nil {
			return writeLine(w, "error: invalid value")
		}
		return c.set(w, cmd, uint32(par))
	default:
		return writeLine(w, Unknown)
	}
}

func (c *Console) sample(ctx context.Context, w io.Writer) error {
	if err := c.cfg.Validate(); err != nil {
		log.Printf("Refusing to sample: %v", err)
		return writeLine(w, "error: invalid value")
	}
	if err := writeLine(w, OK); err != nil {
		return err
	}
	err := c.sampler.Run(ctx, c.cfg)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	log.Printf("Sampling stopped: %v", err)
	return nil
}

func (c *Console) dump(w io.Writer) error {
	var (
		line []byte
		werr error
	)
	n, err := c.log.Dump(func(chunk sample.Batch) error {
		line = dump.AppendChunk(line[:0], chunk)
		_, werr = w.Write(line)
		return werr
	})
	if werr != nil {
		return werr
	}
	if err != nil {
		return reply(w, err, "error: invalid data file")
	}

	_, err = w.Write(dump.AppendTrailer(line[:0], dump.HeaderFor(c.cfg), int(n/sample.Width)))
	return err
}

func (c *Console) format(w io.Writer) error {
	if err := c.log.Format(); err != nil {
		return reply(w, err, "")
	}

	c.cfg = config.DefaultRecord()
	if err := c.log.SaveConfig(c.cfg); err != nil {
		log.Printf("Failed to restore default configuration: %v", err)
	}
	return writeLine(w, OK)
}

func (c *Console) set(w io.Writer, cmd string, par uint32) error {
	rec := c.cfg
	switch cmd {
	case CmdSetDate:
		rec.EpochDate = par
	case CmdSetTime:
		rec.EpochTime = par
	case CmdSetInterval:
		rec.Interval = par
	case CmdSetAppend:
		rec.Append = par != 0
	}

	if err := rec.Validate(); err != nil {
		return writeLine(w, "error: invalid value")
	}
	if err := c.log.SaveConfig(rec); err != nil {
		return reply(w, err, "")
	}

	c.cfg = rec
	return writeLine(w, OK)
}

// reply writes OK or the description of a store error. fileMsg replaces the
// generic text for file errors.
func reply(w io.Writer, err error, fileMsg string) error {
	if err == nil {
		return writeLine(w, OK)
	}
	return writeLine(w, describe(err, fileMsg))
}

func describe(err error, fileMsg string) string {
	switch {
	case errors.Is(err, store.ErrMount):
		return "error: mount failed"
	case errors.Is(err, store.ErrFull):
		return "error: flash full"
	case errors.Is(err, store.ErrFormat):
		return "error: format failed"
	case fileMsg != "":
		return fileMsg
	default:
		return "error: file error"
	}
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
