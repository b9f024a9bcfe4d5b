package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// formatMarker marks a directory as a formatted volume.
const formatMarker = ".picolog"

// DirVolume treats a host directory as a flash volume of fixed capacity.
// Files live directly in the directory; block usage is derived from their sizes.
type DirVolume struct {
	dir        string
	blockSize  int
	blockCount int

	mu      sync.Mutex
	mounted bool
}

var _ Volume = (*DirVolume)(nil)

// NewDirVolume creates a volume rooted at dir. The directory is created by Format.
func NewDirVolume(dir string, blockSize, blockCount int) *DirVolume {
	return &DirVolume{
		dir:        dir,
		blockSize:  blockSize,
		blockCount: blockCount,
	}
}

// Mount implements Volume.
func (v *DirVolume) Mount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mounted {
		return errAlreadyMounted
	}
	if _, err := os.Stat(filepath.Join(v.dir, formatMarker)); err != nil {
		return fmt.Errorf("%w in %s: %v", errNoFilesystem, v.dir, err)
	}
	v.mounted = true
	return nil
}

// Unmount implements Volume.
func (v *DirVolume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return errNotMounted
	}
	v.mounted = false
	return nil
}

// Format implements Volume. Everything in the directory is deleted.
func (v *DirVolume) Format() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mounted {
		return errAlreadyMounted
	}
	if err := os.RemoveAll(v.dir); err != nil {
		return fmt.Errorf("failed to erase %s: %w", v.dir, err)
	}
	if err := os.MkdirAll(v.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", v.dir, err)
	}
	if err := os.WriteFile(filepath.Join(v.dir, formatMarker), nil, 0644); err != nil {
		return fmt.Errorf("failed to write format marker: %w", err)
	}
	return nil
}

// Stat implements Volume.
func (v *DirVolume) Stat() (Usage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return Usage{}, errNotMounted
	}

	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read %s: %w", v.dir, err)
	}

	used := metadataBlocks
	for _, e := range entries {
		if e.Name() == formatMarker || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return Usage{}, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		used += blocksFor(int(info.Size()), v.blockSize)
	}

	return Usage{
		BlockSize:  v.blockSize,
		BlockCount: v.blockCount,
		BlocksUsed: used,
	}, nil
}

// OpenFile implements Volume.
func (v *DirVolume) OpenFile(name string, flag int) (File, error) {
	path, err := v.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return dirFile{f}, nil
}

// Remove implements Volume.
func (v *DirVolume) Remove(name string) error {
	path, err := v.path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (v *DirVolume) path(name string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return "", errNotMounted
	}
	if name == "" || name == formatMarker || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(v.dir, name), nil
}

type dirFile struct {
	*os.File
}

func (f dirFile) Size() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
