//go:build tinygo

package main

import (
	"machine"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"

	"github.com/itohio/picolog/pkg/store"
)

var _ store.Volume = (*flashVolume)(nil)

// flashVolume is a littlefs filesystem on the flash left after the program image.
type flashVolume struct {
	fs         *littlefs.LFS
	blockSize  int
	blockCount int
}

func newFlashVolume(dev tinyfs.BlockDevice) *flashVolume {
	fs := littlefs.New(dev)
	fs.Configure(&littlefs.Config{
		CacheSize:     LFS_CACHE_SIZE,
		LookaheadSize: LFS_LOOKAHEAD_SIZE,
		BlockCycles:   LFS_BLOCK_CYCLES,
	})

	blockSize := int(dev.EraseBlockSize())
	return &flashVolume{
		fs:         fs,
		blockSize:  blockSize,
		blockCount: int(dev.Size()) / blockSize,
	}
}

func (v *flashVolume) Mount() error   { return v.fs.Mount() }
func (v *flashVolume) Unmount() error { return v.fs.Unmount() }
func (v *flashVolume) Format() error  { return v.fs.Format() }

func (v *flashVolume) Stat() (store.Usage, error) {
	used, err := v.fs.Size()
	if err != nil {
		return store.Usage{}, err
	}
	return store.Usage{
		BlockSize:  v.blockSize,
		BlockCount: v.blockCount,
		BlocksUsed: used,
	}, nil
}

func (v *flashVolume) OpenFile(name string, flag int) (store.File, error) {
	f, err := v.fs.OpenFile(name, flag)
	if err != nil {
		return nil, err
	}
	return flashFile{File: f, fs: v.fs, name: name}, nil
}

func (v *flashVolume) Remove(name string) error {
	return v.fs.Remove(name)
}

type flashFile struct {
	tinyfs.File
	fs   *littlefs.LFS
	name string
}

func (f flashFile) Size() (int64, error) {
	info, err := f.fs.Stat(f.name)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// flashDevice is the RP2040 flash above the program image.
var flashDevice tinyfs.BlockDevice = machine.Flash
