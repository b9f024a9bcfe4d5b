package sample

import "encoding/binary"

// AppendBatch appends the little-endian encoding of b to dst.
func AppendBatch(dst []byte, b Batch) []byte {
	for _, r := range b {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(r))
	}
	return dst
}

// Decode appends the records encoded in p to dst. A trailing odd byte is ignored.
func Decode(dst Batch, p []byte) Batch {
	for i := 0; i+Width <= len(p); i += Width {
		dst = append(dst, Record(binary.LittleEndian.Uint16(p[i:])))
	}
	return dst
}
