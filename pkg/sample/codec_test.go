package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendBatch_LittleEndian(t *testing.T) {
	got := AppendBatch(nil, Batch{0x0102, 0x0fff, 0})
	assert.Equal(t, []byte{0x02, 0x01, 0xff, 0x0f, 0x00, 0x00}, got)
}

func TestAppendBatch_Appends(t *testing.T) {
	got := AppendBatch([]byte{0xaa}, Batch{1})
	assert.Equal(t, []byte{0xaa, 0x01, 0x00}, got)
}

func TestDecode(t *testing.T) {
	got := Decode(nil, []byte{0x02, 0x01, 0xff, 0x0f})
	assert.Equal(t, Batch{0x0102, 0x0fff}, got)
}

func TestDecode_IgnoresOddByte(t *testing.T) {
	got := Decode(Batch{7}, []byte{0x01, 0x00, 0x05})
	assert.Equal(t, Batch{7, 1}, got)
}
