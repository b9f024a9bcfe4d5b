package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, blockSize, blockCount int) (*Store, *MemVolume) {
	t.Helper()
	vol := NewMemVolume(blockSize, blockCount)
	return New(vol), vol
}

func dumpAll(t *testing.T, s *Store) (sample.Batch, int64, error) {
	t.Helper()
	var got sample.Batch
	n, err := s.Dump(func(chunk sample.Batch) error {
		got = append(got, chunk...)
		return nil
	})
	return got, n, err
}

func TestStore_AppendThenDump(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)

	batch := sample.Batch{0x0123, 0x0fff, 0x0000, 0x0800}
	require.NoError(t, s.Append(batch))

	data, ok := vol.Contents(DefaultLogName)
	require.True(t, ok)
	assert.Equal(t, []byte{0x23, 0x01, 0xff, 0x0f, 0x00, 0x00, 0x00, 0x08}, data)

	got, n, err := dumpAll(t, s)
	require.NoError(t, err)
	assert.Equal(t, int64(len(batch)*sample.Width), n)
	assert.Equal(t, batch, got)
	assert.False(t, vol.Mounted())
}

func TestStore_AppendAccumulates(t *testing.T) {
	s, _ := newTestStore(t, 4096, 16)

	require.NoError(t, s.Append(sample.Batch{1, 2}))
	require.NoError(t, s.Append(sample.Batch{3}))

	got, n, err := dumpAll(t, s)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Equal(t, sample.Batch{1, 2, 3}, got)
}

func TestStore_AppendEmptyBatch(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)

	require.NoError(t, s.Append(nil))
	assert.Equal(t, 0, vol.Mounts())
	_, ok := vol.Contents(DefaultLogName)
	assert.False(t, ok)
}

func TestStore_AppendFull(t *testing.T) {
	// 2 metadata blocks + 1 data block leaves a single free block.
	s, vol := newTestStore(t, 8, 4)

	require.NoError(t, s.Append(sample.Batch{1, 2, 3, 4}))
	before, _ := vol.Contents(DefaultLogName)

	err := s.Append(sample.Batch{5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, KindFull, KindOf(err))

	after, _ := vol.Contents(DefaultLogName)
	assert.Equal(t, before, after)
	assert.False(t, vol.Mounted())
}

func TestStore_AppendMountError(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	vol.MountErr = errors.New("no flash")

	err := s.Append(sample.Batch{1})
	assert.ErrorIs(t, err, ErrMount)
	assert.Equal(t, KindMount, KindOf(err))
}

func TestStore_AppendWriteError(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	vol.WriteErr = errors.New("program failed")

	err := s.Append(sample.Batch{1})
	assert.ErrorIs(t, err, ErrFile)
	assert.ErrorIs(t, err, vol.WriteErr)
	assert.False(t, vol.Mounted())

	// the volume stays usable after a failed write
	vol.WriteErr = nil
	require.NoError(t, s.Append(sample.Batch{2}))
}

func TestStore_AppendOpenError(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	vol.OpenErr = errors.New("too many files")

	err := s.Append(sample.Batch{1})
	assert.ErrorIs(t, err, ErrFile)
	assert.False(t, vol.Mounted())
}

func TestStore_RemoveThenDump(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	require.NoError(t, s.Append(sample.Batch{1, 2}))

	require.NoError(t, s.Remove())

	_, _, err := dumpAll(t, s)
	assert.ErrorIs(t, err, ErrFile)
	assert.False(t, vol.Mounted())
}

func TestStore_RemoveRepeatedly(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	require.NoError(t, s.Append(sample.Batch{1}))
	require.NoError(t, s.Remove())

	for i := 0; i < 3; i++ {
		err := s.Remove()
		assert.ErrorIs(t, err, ErrFile)
		assert.False(t, vol.Mounted())
	}

	// still usable afterwards
	require.NoError(t, s.Append(sample.Batch{7}))
	got, n, err := dumpAll(t, s)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, sample.Batch{7}, got)
}

func TestStore_DumpChunks(t *testing.T) {
	s, _ := newTestStore(t, 4096, 16)

	batch := make(sample.Batch, 70)
	for i := range batch {
		batch[i] = sample.Record(i)
	}
	require.NoError(t, s.Append(batch))

	var sizes []int
	var got sample.Batch
	n, err := s.Dump(func(chunk sample.Batch) error {
		sizes = append(sizes, len(chunk))
		got = append(got, chunk...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(140), n)
	assert.Equal(t, []int{ChunkRecords, ChunkRecords, 6}, sizes)
	assert.Equal(t, batch, got)
}

func TestStore_DumpConsumerError(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	require.NoError(t, s.Append(make(sample.Batch, 40)))

	stop := errors.New("stop")
	n, err := s.Dump(func(sample.Batch) error { return stop })
	assert.Equal(t, stop, err)
	assert.Equal(t, int64(ChunkRecords*sample.Width), n)
	assert.False(t, vol.Mounted())
}

func TestStore_DumpMountError(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	vol.MountErr = errors.New("no flash")

	_, _, err := dumpAll(t, s)
	assert.ErrorIs(t, err, ErrMount)
}

func TestStore_Format(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	require.NoError(t, s.Append(sample.Batch{1}))
	require.NoError(t, s.SaveConfig(config.DefaultRecord()))

	require.NoError(t, s.Format())

	_, ok := vol.Contents(DefaultLogName)
	assert.False(t, ok)
	_, ok = vol.Contents(ConfigName)
	assert.False(t, ok)
	assert.False(t, vol.Mounted())
}

func TestStore_FormatError(t *testing.T) {
	s, vol := newTestStore(t, 4096, 16)
	vol.FormatErr = errors.New("erase failed")

	err := s.Format()
	assert.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, KindFormat, KindOf(err))
}

func TestStore_Init(t *testing.T) {
	tests := []struct {
		name     string
		corrupt  bool
		fmtErr   error
		wantKind Kind
		wantData bool
	}{
		{name: "mountable volume is kept", wantData: true},
		{name: "corrupt volume is formatted", corrupt: true},
		{name: "format failure", corrupt: true, fmtErr: errors.New("erase failed"), wantKind: KindFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, vol := newTestStore(t, 4096, 16)
			require.NoError(t, s.Append(sample.Batch{1}))
			if tt.corrupt {
				vol.Corrupt()
			}
			vol.FormatErr = tt.fmtErr

			err := s.Init()
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.False(t, vol.Mounted())

			_, ok := vol.Contents(DefaultLogName)
			assert.Equal(t, tt.wantData, ok)
		})
	}
}

func TestStore_Usage(t *testing.T) {
	s, _ := newTestStore(t, 16, 10)
	require.NoError(t, s.Append(make(sample.Batch, 10)))

	usage, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, Usage{BlockSize: 16, BlockCount: 10, BlocksUsed: 4}, usage)
	assert.Equal(t, 6, usage.Free())
}

func TestStore_WithOptions(t *testing.T) {
	vol := NewMemVolume(8, 6)
	s := New(vol, WithLogName("log.bin"), WithReserve(4))

	require.NoError(t, s.Append(sample.Batch{1}))
	_, ok := vol.Contents("log.bin")
	assert.True(t, ok)

	// 3 blocks used, 3 free, reserve of 4 not met
	assert.ErrorIs(t, s.Append(sample.Batch{2}), ErrFull)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindFile, KindOf(errors.New("other")))
	assert.Equal(t, KindMount, KindOf(fail("x", KindMount, nil)))
	assert.Equal(t, "format", KindFormat.String())
	assert.Equal(t, "append: flash full", fail("append", KindFull, nil).Error())
}

func TestDirVolume(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "flash")
	vol := NewDirVolume(dir, 8, 8)
	s := New(vol)

	// not formatted yet
	assert.ErrorIs(t, s.Append(sample.Batch{1}), ErrMount)

	require.NoError(t, s.Init())
	require.NoError(t, s.Append(sample.Batch{1, 2, 3, 4, 5}))

	raw, err := os.ReadFile(filepath.Join(dir, DefaultLogName))
	require.NoError(t, err)
	assert.Len(t, raw, 10)

	usage, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, 4, usage.BlocksUsed)

	got, n, err := dumpAll(t, s)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, sample.Batch{1, 2, 3, 4, 5}, got)

	require.NoError(t, s.Remove())
	assert.ErrorIs(t, s.Remove(), ErrFile)

	require.NoError(t, s.Append(sample.Batch{9}))
	require.NoError(t, s.Format())
	_, _, err = dumpAll(t, s)
	assert.ErrorIs(t, err, ErrFile)
}

func TestDirVolume_RejectsPaths(t *testing.T) {
	vol := NewDirVolume(t.TempDir(), 8, 8)
	require.NoError(t, vol.Format())
	require.NoError(t, vol.Mount())
	defer vol.Unmount()

	_, err := vol.OpenFile("../escape", os.O_RDONLY)
	assert.Error(t, err)
	_, err = vol.OpenFile(formatMarker, os.O_RDONLY)
	assert.Error(t, err)
}

func TestMemVolume_ExclusiveMount(t *testing.T) {
	vol := NewMemVolume(8, 8)
	require.NoError(t, vol.Mount())
	assert.Error(t, vol.Mount())
	assert.Error(t, vol.Format())
	require.NoError(t, vol.Unmount())
	assert.Error(t, vol.Unmount())

	_, err := vol.OpenFile("x", os.O_RDONLY)
	assert.Error(t, err)
}
