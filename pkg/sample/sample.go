package sample

const (
	// Width is the on-flash size of one Record in bytes.
	Width = 2

	// flushPeriod is the target time between flash writes for short intervals (seconds).
	flushPeriod = 60
	// batchLimit is the first interval that is written sample by sample.
	batchLimit = 31
)

// Record is one raw 12-bit ADC reading as stored in the log file.
type Record uint16

// Batch is an ordered group of records flushed to storage as one write.
type Batch []Record

// Capacity returns how many samples are collected before a flash write for the
// given interval. Intervals below 31 s are coalesced into roughly one write per
// minute (1..30 s -> 60..30 s between writes); longer intervals are written
// immediately.
func Capacity(interval uint32) int {
	if interval == 0 {
		interval = 1
	}
	if interval < batchLimit {
		return int(flushPeriod / interval)
	}
	return 1
}

// Buffer accumulates samples until a full batch is ready.
// A Buffer is owned by a single sampling loop and is not safe for concurrent use.
type Buffer struct {
	batch Batch
	size  int
}

// NewBuffer creates a buffer that flushes every sample until configured.
func NewBuffer() *Buffer {
	return &Buffer{
		batch: make(Batch, 0, 1),
		size:  1,
	}
}

// Configure sizes the buffer for the interval and drops any unflushed samples.
// It returns the new capacity.
func (b *Buffer) Configure(interval uint32) int {
	b.size = Capacity(interval)
	b.batch = make(Batch, 0, b.size)
	return b.size
}

// Add appends a sample. When the buffer reaches its capacity the filled batch
// is returned and the buffer starts over empty. The returned batch is owned by
// the caller.
func (b *Buffer) Add(r Record) (Batch, bool) {
	b.batch = append(b.batch, r)
	if len(b.batch) < b.size {
		return nil, false
	}

	full := b.batch
	b.batch = make(Batch, 0, b.size)
	return full, true
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return len(b.batch)
}

// Cap returns the batch capacity.
func (b *Buffer) Cap() int {
	return b.size
}
