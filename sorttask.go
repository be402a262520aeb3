package extsort

import (
	"fmt"
	"os"
	"slices"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// sortTask reads one partition of the input file, sorts it in memory, and
// writes the result as a level-0 chunk. One sortTask runs per partition;
// the pipeline worker loop drives it to completion before any merge task
// can consume its output, handing off cleanly between the sorting stage
// and the first merge level.
type sortTask struct {
	partitionOffset int64
	partitionSize   int64

	codec   RecordCodec
	algo    SortAlgorithm
	outID   ChunkId
	outPath string
	backend StreamBackend
}

func newSortTask(offset, size int64, codec RecordCodec, algo SortAlgorithm, outID ChunkId, outPath string, backend StreamBackend) *sortTask {
	return &sortTask{
		partitionOffset: offset,
		partitionSize:   size,
		codec:           codec,
		algo:            algo,
		outID:           outID,
		outPath:         outPath,
		backend:         backend,
	}
}

// run reads s.partitionSize bytes starting at s.partitionOffset from
// inputPath, sorts them as s.codec-width unsigned integers, and writes the
// sorted records to the task's output chunk.
func (s *sortTask) run(inputPath string, ioBufferSize int) (int64, error) {
	values, err := readPartition(inputPath, s.partitionOffset, s.partitionSize, s.codec)
	if err != nil {
		return 0, err
	}

	switch s.algo {
	case SortComparison:
		slices.Sort(values)
	case SortRadix:
		radixSortUint64(values, s.codec.Size())
	default:
		return 0, fmt.Errorf("%w: %d", extsorterrors.ErrUnknownAlgorithm, s.algo)
	}

	w, err := newChunkWriter(s.backend, s.outPath, s.outID, s.codec)
	if err != nil {
		return 0, err
	}
	expected := int64(len(values)) * int64(s.codec.Size())
	if err := w.Open(ioBufferSize, expected); err != nil {
		return 0, err
	}
	for _, v := range values {
		if err := w.Put(v); err != nil {
			w.Close()
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return expected, nil
}

// readPartition loads one byte range of inputPath into memory as decoded
// uint64 values. size must be a multiple of codec.Size(); callers round
// partition boundaries down beforehand.
func readPartition(path string, offset, size int64, codec RecordCodec) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extsort: open input: %w", err)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("extsort: read partition at %d: %w", offset, err)
	}

	n := codec.Count(size)
	values := make([]uint64, n)
	recSize := codec.Size()
	for i := range values {
		values[i] = codec.Decode(buf[i*recSize : (i+1)*recSize])
	}
	return values, nil
}
