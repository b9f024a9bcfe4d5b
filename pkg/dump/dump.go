package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/itohio/picolog/pkg/schedule"
)

// ChunkRecords is the number of records per dump line.
const ChunkRecords = 32

// ErrDevice wraps an "error: ..." line reported by the logger.
var ErrDevice = errors.New("device error")

// Header is the trailer line of a dump: the schedule the samples were taken with.
type Header struct {
	Date     uint32 // yyyymmdd
	Time     uint32 // hhmmss
	Interval uint32 // seconds
}

// HeaderFor returns the header of a configuration record.
func HeaderFor(rec config.Record) Header {
	return Header{Date: rec.EpochDate, Time: rec.EpochTime, Interval: rec.Interval}
}

// File is a dumped sample log.
type File struct {
	Header
	Samples sample.Batch
}

// AppendChunk appends one dump line with the records of chunk.
func AppendChunk(dst []byte, chunk sample.Batch) []byte {
	for _, r := range chunk {
		dst = append(dst, "0x"...)
		dst = appendHex4(dst, uint16(r))
		dst = append(dst, ' ')
	}
	return append(dst, '\n')
}

func appendHex4(dst []byte, v uint16) []byte {
	const digits = "0123456789abcdef"
	return append(dst, digits[v>>12&0xf], digits[v>>8&0xf], digits[v>>4&0xf], digits[v&0xf])
}

// AppendTrailer appends the blank separator line and the trailer.
func AppendTrailer(dst []byte, h Header, count int) []byte {
	return fmt.Appendf(dst, "\n%08d %06d %06d %d\n", h.Date, h.Time, h.Interval, count)
}

// Parser assembles a File from dump lines fed one at a time.
type Parser struct {
	f    File
	done bool
}

// Line consumes one line. It reports done after the trailer was parsed.
func (p *Parser) Line(line string) (done bool, err error) {
	if p.done {
		return true, nil
	}

	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case strings.HasPrefix(line, "error:"):
		return false, fmt.Errorf("%w: %s", ErrDevice, strings.TrimSpace(strings.TrimPrefix(line, "error:")))
	case strings.HasPrefix(line, "0x"):
		for _, tok := range strings.Fields(line) {
			v, err := strconv.ParseUint(tok, 0, 16)
			if err != nil {
				return false, fmt.Errorf("failed to parse sample %q: %w", tok, err)
			}
			p.f.Samples = append(p.f.Samples, sample.Record(v))
		}
		return false, nil
	default:
		count, err := p.f.parseTrailer(line)
		if err != nil {
			return false, err
		}
		if count != len(p.f.Samples) {
			return false, fmt.Errorf("trailer reports %d samples, got %d", count, len(p.f.Samples))
		}
		p.done = true
		return true, nil
	}
}

// File returns the parsed dump, or nil before the trailer was seen.
func (p *Parser) File() *File {
	if !p.done {
		return nil
	}
	f := p.f
	return &f
}

// Read parses a dump as sent by the logger or saved by Save. It stops after
// the trailer.
func Read(r io.Reader) (*File, error) {
	var p Parser
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 64*1024)

	for scanner.Scan() {
		done, err := p.Line(scanner.Text())
		if err != nil {
			return nil, err
		}
		if done {
			return p.File(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	return nil, fmt.Errorf("failed to read dump: %w", io.ErrUnexpectedEOF)
}

func (f *File) parseTrailer(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return 0, fmt.Errorf("invalid trailer %q", line)
	}

	var vals [4]uint64
	for i, s := range fields {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid trailer %q: %w", line, err)
		}
		vals[i] = v
	}

	f.Date, f.Time, f.Interval = uint32(vals[0]), uint32(vals[1]), uint32(vals[2])
	return int(vals[3]), nil
}

// WriteTo writes the dump in the logger's format.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	for i := 0; i < len(f.Samples); i += ChunkRecords {
		buf = AppendChunk(buf, f.Samples[i:min(i+ChunkRecords, len(f.Samples))])
	}
	buf = AppendTrailer(buf, f.Header, len(f.Samples))

	n, err := w.Write(buf)
	return int64(n), err
}

// Load reads a saved dump file.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer fh.Close()

	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// Save writes the dump to path.
func (f *File) Save(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	if _, err := f.WriteTo(fh); err != nil {
		fh.Close()
		return fmt.Errorf("failed to write dump file: %w", err)
	}
	return fh.Close()
}

// Start returns the time of the first sample.
func (f *File) Start() time.Time {
	return schedule.State{Date: f.Date, Time: f.Time, Interval: f.Interval}.Start()
}

// Step returns the time between samples.
func (f *File) Step() time.Duration {
	return time.Duration(f.Interval) * time.Second
}

// Points converts the samples to volts on the time axis after averaging
// groups of avg samples.
func (f *File) Points(vref float32, bits, avg int) []sample.Point {
	if avg < 1 {
		avg = 1
	}
	records := sample.Average(nil, f.Samples, avg)
	return sample.Points(nil, records, f.Start(), f.Step()*time.Duration(avg), vref, bits)
}
