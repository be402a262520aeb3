package extsort

import (
	"encoding/binary"
	"fmt"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// RecordCodec describes the fixed-width record type the pipeline sorts.
// Records are little-endian unsigned integers of a power-of-two width; the
// codec converts between their on-disk bytes and a uint64 used as the sort
// key everywhere above the byte layer, packing/unpacking each integer
// width through small dedicated encode/decode functions.
type RecordCodec struct {
	size int // bytes per record: 1, 2, 4, or 8
}

// NewRecordCodec validates size and returns a codec for it.
func NewRecordCodec(size int) (RecordCodec, error) {
	switch size {
	case 1, 2, 4, 8:
		return RecordCodec{size: size}, nil
	default:
		return RecordCodec{}, fmt.Errorf("%w: got %d", extsorterrors.ErrInvalidRecordSize, size)
	}
}

// Size returns the record width in bytes.
func (c RecordCodec) Size() int { return c.size }

// Decode reads one record from the front of buf as a uint64.
func (c RecordCodec) Decode(buf []byte) uint64 {
	switch c.size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default: // 8
		return binary.LittleEndian.Uint64(buf)
	}
}

// Encode writes value into the front of buf.
func (c RecordCodec) Encode(value uint64, buf []byte) {
	switch c.size {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	default: // 8
		binary.LittleEndian.PutUint64(buf, value)
	}
}

// RoundDown rounds n down to the nearest multiple of the record size.
func (c RecordCodec) RoundDown(n int64) int64 {
	return n - n%int64(c.size)
}

// Count returns the number of whole records represented by n bytes.
func (c RecordCodec) Count(n int64) int64 {
	return n / int64(c.size)
}
