package store

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/itohio/picolog/pkg/sample"
)

const (
	// DefaultLogName is the name of the sample log file.
	DefaultLogName = "data.bin"
	// DefaultReserve is the number of blocks that must stay free for a write to proceed.
	DefaultReserve = 2
	// ChunkRecords is the number of records handed to a dump consumer at once.
	ChunkRecords = 32
)

// Store is the persistent sample log. Every operation mounts the volume on
// entry and unmounts it before returning, on every path; no mount is held
// between calls.
type Store struct {
	vol     Volume
	logName string
	reserve int

	// mu makes the mount exclusive within the process.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogName sets the log file name.
func WithLogName(name string) Option {
	return func(s *Store) {
		s.logName = name
	}
}

// WithReserve sets the number of blocks that must remain free for a write.
func WithReserve(blocks int) Option {
	return func(s *Store) {
		s.reserve = blocks
	}
}

// New creates a Store on top of a volume.
func New(vol Volume, opts ...Option) *Store {
	s := &Store{
		vol:     vol,
		logName: DefaultLogName,
		reserve: DefaultReserve,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mount acquires the volume. The returned release func unmounts it and must be
// called exactly once, normally deferred right after a successful mount.
func (s *Store) mount(op string) (release func(), err error) {
	s.mu.Lock()
	if err := s.vol.Mount(); err != nil {
		s.mu.Unlock()
		return nil, fail(op, KindMount, err)
	}
	return func() {
		if err := s.vol.Unmount(); err != nil {
			log.Printf("Error unmounting volume after %s: %v", op, err)
		}
		s.mu.Unlock()
	}, nil
}

// ensureFree fails with ErrFull when fewer than the reserved blocks are free.
// The volume must be mounted.
func (s *Store) ensureFree(op string) error {
	usage, err := s.vol.Stat()
	if err != nil {
		return fail(op, KindMount, err)
	}
	if usage.Free() < s.reserve {
		return fail(op, KindFull, nil)
	}
	return nil
}

// Init prepares the volume at boot. A volume that cannot be mounted is
// formatted; ErrFormat is returned if that fails as well.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.vol.Mount()
	if err == nil {
		return s.vol.Unmount()
	}

	log.Printf("Volume not mountable, formatting: %v", err)
	return s.formatLocked("init")
}

// Append writes the batch to the end of the log file in one contiguous write.
// Nothing is written when the volume is short of the reserved free blocks.
func (s *Store) Append(batch sample.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	release, err := s.mount("append")
	if err != nil {
		return err
	}
	defer release()

	if err := s.ensureFree("append"); err != nil {
		return err
	}

	f, err := s.vol.OpenFile(s.logName, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
	if err != nil {
		return fail("append", KindFile, err)
	}

	buf := sample.AppendBatch(make([]byte, 0, len(batch)*sample.Width), batch)
	n, err := f.Write(buf)
	if err == nil && n != len(buf) {
		err = io.ErrShortWrite
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail("append", KindFile, err)
	}

	return nil
}

// Dump streams the log file to fn in chunks of up to ChunkRecords records and
// returns the number of bytes read. The chunk slice is reused between calls.
// An error returned by fn stops the dump and is returned unchanged.
func (s *Store) Dump(fn func(chunk sample.Batch) error) (int64, error) {
	release, err := s.mount("dump")
	if err != nil {
		return 0, err
	}
	defer release()

	f, err := s.vol.OpenFile(s.logName, os.O_RDONLY)
	if err != nil {
		return 0, fail("dump", KindFile, err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return 0, fail("dump", KindFile, err)
	}

	buf := make([]byte, ChunkRecords*sample.Width)
	chunk := make(sample.Batch, 0, ChunkRecords)

	var total int64
	for total < size {
		n := min(int64(len(buf)), size-total)
		if _, err := io.ReadFull(f, buf[:n]); err != nil {
			return total, fail("dump", KindFile, err)
		}
		total += n

		chunk = sample.Decode(chunk[:0], buf[:n])
		if len(chunk) == 0 {
			continue
		}
		if err := fn(chunk); err != nil {
			return total, err
		}
	}

	return total, nil
}

// Remove deletes the log file. ErrFile is returned when there is no log file.
func (s *Store) Remove() error {
	release, err := s.mount("remove")
	if err != nil {
		return err
	}
	defer release()

	if err := s.vol.Remove(s.logName); err != nil {
		return fail("remove", KindFile, err)
	}
	return nil
}

// Format erases the whole volume, log and configuration alike.
func (s *Store) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.formatLocked("format")
}

func (s *Store) formatLocked(op string) error {
	if err := s.vol.Format(); err != nil {
		return fail(op, KindFormat, err)
	}
	if err := s.vol.Mount(); err != nil {
		return fail(op, KindFormat, err)
	}
	if err := s.vol.Unmount(); err != nil {
		return fail(op, KindFormat, err)
	}
	return nil
}

// Usage reports the block occupancy of the volume.
func (s *Store) Usage() (Usage, error) {
	release, err := s.mount("usage")
	if err != nil {
		return Usage{}, err
	}
	defer release()

	usage, err := s.vol.Stat()
	if err != nil {
		return Usage{}, fail("usage", KindMount, err)
	}
	return usage, nil
}
