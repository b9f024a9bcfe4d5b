package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// metadataBlocks is the number of blocks a formatted volume uses for itself
// (the two littlefs superblocks).
const metadataBlocks = 2

var (
	errNotMounted     = errors.New("volume not mounted")
	errAlreadyMounted = errors.New("volume already mounted")
	errNoFilesystem   = errors.New("no filesystem")
	errNoSpace        = errors.New("no space left on volume")
)

// MemVolume emulates a small flash volume in memory, including block
// accounting. The exported error fields inject failures.
type MemVolume struct {
	// MountErr, when set, is returned by Mount.
	MountErr error
	// FormatErr, when set, is returned by Format.
	FormatErr error
	// OpenErr, when set, is returned by OpenFile.
	OpenErr error
	// WriteErr, when set, is returned by File.Write.
	WriteErr error

	mu         sync.Mutex
	blockSize  int
	blockCount int
	formatted  bool
	mounted    bool
	mounts     int
	files      map[string][]byte
}

var _ Volume = (*MemVolume)(nil)

// NewMemVolume creates a formatted, empty volume.
func NewMemVolume(blockSize, blockCount int) *MemVolume {
	return &MemVolume{
		blockSize:  blockSize,
		blockCount: blockCount,
		formatted:  true,
		files:      make(map[string][]byte),
	}
}

// Corrupt destroys the filesystem so that the next Mount fails until Format.
func (v *MemVolume) Corrupt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formatted = false
	v.files = make(map[string][]byte)
}

// Mounted reports whether the volume is currently mounted.
func (v *MemVolume) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Mounts returns how many times the volume was mounted successfully.
func (v *MemVolume) Mounts() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounts
}

// Contents returns a copy of a file's bytes and whether the file exists.
func (v *MemVolume) Contents(name string) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data, ok := v.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Mount implements Volume.
func (v *MemVolume) Mount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.MountErr != nil {
		return v.MountErr
	}
	if v.mounted {
		return errAlreadyMounted
	}
	if !v.formatted {
		return errNoFilesystem
	}
	v.mounted = true
	v.mounts++
	return nil
}

// Unmount implements Volume.
func (v *MemVolume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return errNotMounted
	}
	v.mounted = false
	return nil
}

// Format implements Volume.
func (v *MemVolume) Format() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.FormatErr != nil {
		return v.FormatErr
	}
	if v.mounted {
		return errAlreadyMounted
	}
	v.files = make(map[string][]byte)
	v.formatted = true
	return nil
}

// Stat implements Volume.
func (v *MemVolume) Stat() (Usage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return Usage{}, errNotMounted
	}
	return Usage{
		BlockSize:  v.blockSize,
		BlockCount: v.blockCount,
		BlocksUsed: v.usedLocked(),
	}, nil
}

func (v *MemVolume) usedLocked() int {
	used := metadataBlocks
	for _, data := range v.files {
		used += blocksFor(len(data), v.blockSize)
	}
	return used
}

// OpenFile implements Volume.
func (v *MemVolume) OpenFile(name string, flag int) (File, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return nil, errNotMounted
	}
	if v.OpenErr != nil {
		return nil, v.OpenErr
	}

	_, exists := v.files[name]
	if !exists {
		if flag&os.O_CREATE == 0 {
			return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
		}
		v.files[name] = nil
	}
	if flag&os.O_TRUNC != 0 {
		v.files[name] = nil
	}

	return &memFile{vol: v, name: name, flag: flag}, nil
}

// Remove implements Volume.
func (v *MemVolume) Remove(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return errNotMounted
	}
	if _, ok := v.files[name]; !ok {
		return fmt.Errorf("remove %s: %w", name, os.ErrNotExist)
	}
	delete(v.files, name)
	return nil
}

type memFile struct {
	vol    *MemVolume
	name   string
	flag   int
	pos    int
	closed bool
}

func (f *memFile) Read(p []byte) (int, error) {
	f.vol.mu.Lock()
	defer f.vol.mu.Unlock()

	if err := f.checkLocked(); err != nil {
		return 0, err
	}
	data := f.vol.files[f.name]
	if f.pos >= len(data) {
		return 0, io.EOF
	}
	n := copy(p, data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	f.vol.mu.Lock()
	defer f.vol.mu.Unlock()

	if err := f.checkLocked(); err != nil {
		return 0, err
	}
	if f.flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return 0, fmt.Errorf("write %s: file opened read-only", f.name)
	}
	if f.vol.WriteErr != nil {
		return 0, f.vol.WriteErr
	}

	data := f.vol.files[f.name]
	if f.flag&os.O_APPEND != 0 {
		f.pos = len(data)
	}
	end := f.pos + len(p)

	grow := blocksFor(max(end, len(data)), f.vol.blockSize) - blocksFor(len(data), f.vol.blockSize)
	if f.vol.usedLocked()+grow > f.vol.blockCount {
		return 0, errNoSpace
	}

	if end > len(data) {
		data = append(data, make([]byte, end-len(data))...)
	}
	copy(data[f.pos:], p)
	f.vol.files[f.name] = data
	f.pos = end
	return len(p), nil
}

func (f *memFile) Close() error {
	f.vol.mu.Lock()
	defer f.vol.mu.Unlock()

	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	return nil
}

func (f *memFile) Size() (int64, error) {
	f.vol.mu.Lock()
	defer f.vol.mu.Unlock()

	if err := f.checkLocked(); err != nil {
		return 0, err
	}
	return int64(len(f.vol.files[f.name])), nil
}

func (f *memFile) checkLocked() error {
	if f.closed {
		return os.ErrClosed
	}
	if !f.vol.mounted {
		return errNotMounted
	}
	if _, ok := f.vol.files[f.name]; !ok {
		return fmt.Errorf("%s: %w", f.name, os.ErrNotExist)
	}
	return nil
}

func blocksFor(size, blockSize int) int {
	if size <= 0 || blockSize <= 0 {
		return 0
	}
	return (size + blockSize - 1) / blockSize
}
