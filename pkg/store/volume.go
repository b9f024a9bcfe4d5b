package store

import "io"

// Usage describes the block occupancy of a mounted volume.
type Usage struct {
	BlockSize  int
	BlockCount int
	BlocksUsed int
}

// Free returns the number of unused blocks.
func (u Usage) Free() int {
	return u.BlockCount - u.BlocksUsed
}

// File is an open file on a mounted volume.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Size() (int64, error)
}

// Volume is a flash filesystem that must be mounted before use.
// Only one mount may be active at a time; files are only valid while mounted.
type Volume interface {
	Mount() error
	Unmount() error
	// Format erases the volume. The volume must not be mounted.
	Format() error
	Stat() (Usage, error)
	// OpenFile opens a file with os.O_* flags.
	OpenFile(name string, flag int) (File, error)
	Remove(name string) error
}
