package extsort

import (
	"fmt"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// ChunkReader reads records of a fixed width from one chunk file in
// ascending file order. Implementations buffer however is natural for their
// backend (bufio, a caller-sized buffer, or an mmap'd view) but all expose
// the same value-at-a-time contract so the merging unit never knows which
// backend it's reading from: StreamBackend swaps the implementation behind
// one interface.
type ChunkReader interface {
	// Open prepares the reader to deliver values, sizing any internal
	// buffer to bufferSize bytes (rounded down to a whole number of
	// records).
	Open(bufferSize int) error

	// Next advances to the next record and reports whether one was
	// available. It must be called once before the first Value.
	Next() (bool, error)

	// Value returns the record at the current position. Valid only after
	// Next has returned true.
	Value() uint64

	// CopyTo advances through every record after the current position,
	// calling Next and putting each Value to out until EOF. The record at
	// the current position (already delivered by a prior Next) is not
	// copied; the caller emits it first if it needs it.
	CopyTo(out ChunkWriter) error

	// EOF reports whether the reader has been exhausted.
	EOF() bool

	// Size returns the chunk's total size in bytes.
	Size() int64

	// Count returns the chunk's total record count.
	Count() int64

	// ID returns the identity of the chunk being read.
	ID() ChunkId

	// Checksum returns the order-independent content checksum folded over
	// every record delivered so far (see integrity.go). Only meaningful
	// once EOF has been reached.
	Checksum() uint64

	Close() error
}

// ChunkWriter appends records to one chunk file in the order Put is called.
type ChunkWriter interface {
	// Open prepares the writer, sizing any internal buffer to bufferSize
	// bytes and, when the backend supports it, pre-allocating
	// expectedTotalBytes on disk (0 if unknown).
	Open(bufferSize int, expectedTotalBytes int64) error

	// Put appends one record.
	Put(value uint64) error

	// ID returns the identity of the chunk being written.
	ID() ChunkId

	// Checksum returns the order-independent content checksum folded over
	// every record written so far (see integrity.go).
	Checksum() uint64

	Close() error
}

// newChunkReader constructs a ChunkReader for path, id, and codec using the
// backend named by backend.
func newChunkReader(backend StreamBackend, path string, id ChunkId, codec RecordCodec) (ChunkReader, error) {
	switch backend {
	case BackendBuffered:
		return newBufferedChunkReader(path, id, codec), nil
	case BackendNative:
		return newNativeChunkReader(path, id, codec), nil
	case BackendMapped:
		return newMappedChunkReader(path, id, codec), nil
	default:
		return nil, fmt.Errorf("%w: %d", extsorterrors.ErrUnknownBackend, backend)
	}
}

// newChunkWriter constructs a ChunkWriter for path, id, and codec using the
// backend named by backend.
func newChunkWriter(backend StreamBackend, path string, id ChunkId, codec RecordCodec) (ChunkWriter, error) {
	switch backend {
	case BackendBuffered:
		return newBufferedChunkWriter(path, id, codec), nil
	case BackendNative:
		return newNativeChunkWriter(path, id, codec), nil
	case BackendMapped:
		return newMappedChunkWriter(path, id, codec), nil
	default:
		return nil, fmt.Errorf("%w: %d", extsorterrors.ErrUnknownBackend, backend)
	}
}
