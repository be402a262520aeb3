// Package errors defines all exported error sentinels for the extsort
// engine.
//
// This is the single source of truth for the top-level extsort package's
// error values, so callers can match them with errors.Is across package
// boundaries. The internal packages do not import it: internal/syncutil
// reports its own *ErrDuplicateName type and panics on barrier overflow.
package errors

import "errors"

// Config errors
var (
	ErrBufferTooSmall    = errors.New("extsort: buffer budget rounds down to zero")
	ErrUnknownAlgorithm  = errors.New("extsort: unknown sort algorithm")
	ErrUnknownBackend    = errors.New("extsort: unknown stream backend")
	ErrInvalidRecordSize = errors.New("extsort: record size must be a power of two")
)

// I/O and format errors
var (
	ErrChunkMisaligned = errors.New("extsort: file length is not a multiple of the record size")
	ErrEmptyChunkFile  = errors.New("extsort: chunk file is empty")
)

// Invariant errors
var (
	ErrDuplicateName  = errors.New("extsort: named synchronization primitive already registered")
	ErrBarrierMisuse  = errors.New("extsort: barrier waited on more times than its count")
	ErrSingletonGroup = errors.New("extsort: merge task tree produced a singleton group")
)

// Worker errors
var (
	ErrWorkerFailed = errors.New("extsort: one or more workers failed")
)

// ErrChecksumMismatch is returned by a merge task run with verification
// enabled when its output's folded content checksum does not match the
// XOR of its inputs' checksums.
var ErrChecksumMismatch = errors.New("extsort: merge output checksum does not match its inputs")

// ErrClosed names the already-closed condition for a stream or task. The
// chunk stream backends do not return it: Close on an already-closed
// stream is a no-op that returns nil.
var ErrClosed = errors.New("extsort: already closed")
