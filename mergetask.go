package extsort

import (
	"fmt"

	extsorterrors "github.com/tamirms/extsort/errors"
	extsortheap "github.com/tamirms/extsort/internal/heap"
)

// mergeTask merges a group of input chunks (one task-tree node's children)
// into a single output chunk. Exactly two inputs take the two-way merge
// path, which compares the two current values directly with no heap
// bookkeeping; any other input count uses the generic n-way min-heap path.
type mergeTask struct {
	inputs  []ChunkId
	outID   ChunkId
	outPath string

	codec        RecordCodec
	backend      StreamBackend
	chunkDir     string
	separator    string
	removeInputs bool
	verify       bool
}

func newMergeTask(inputs []ChunkId, outID ChunkId, outPath string, codec RecordCodec, backend StreamBackend, chunkDir, separator string, removeInputs, verify bool) *mergeTask {
	return &mergeTask{
		inputs:       inputs,
		outID:        outID,
		outPath:      outPath,
		codec:        codec,
		backend:      backend,
		chunkDir:     chunkDir,
		separator:    separator,
		removeInputs: removeInputs,
		verify:       verify,
	}
}

// run performs the merge: inBudget is divided evenly across the opened
// input readers (ick = round_down(inBudget/|inputs|, record_size)), and
// outBudget sizes the output writer alone (ock = round_down(outBudget,
// record_size)). Either rounding to zero is a config error, not a silent
// bump to one record.
func (m *mergeTask) run(inBudget, outBudget int64) (int64, error) {
	if len(m.inputs) == 0 {
		return 0, fmt.Errorf("extsort: merge task %s has no inputs", m.outID)
	}

	ick := m.codec.RoundDown(inBudget / int64(len(m.inputs)))
	ock := m.codec.RoundDown(outBudget)
	if ick == 0 || ock == 0 {
		return 0, fmt.Errorf("%w: merge task %s: in=%d out=%d", extsorterrors.ErrBufferTooSmall, m.outID, ick, ock)
	}
	readerBudget := int(ick)
	writerBudget := int(ock)

	readers := make([]ChunkReader, 0, len(m.inputs))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	var expectedBytes int64
	for _, id := range m.inputs {
		r, err := newChunkReader(m.backend, id.Path(m.chunkDir, m.separator), id, m.codec)
		if err != nil {
			return 0, err
		}
		if err := r.Open(readerBudget); err != nil {
			return 0, err
		}
		expectedBytes += r.Size()
		readers = append(readers, r)
	}

	w, err := newChunkWriter(m.backend, m.outPath, m.outID, m.codec)
	if err != nil {
		return 0, err
	}
	if err := w.Open(writerBudget, expectedBytes); err != nil {
		return 0, err
	}

	var mergeErr error
	if len(readers) == 2 {
		mergeErr = mergeTwoWay(readers[0], readers[1], w)
	} else {
		mergeErr = mergeHeap(readers, w)
	}
	if mergeErr != nil {
		w.Close()
		return 0, mergeErr
	}
	if m.verify {
		if err := verifyMergeChecksum(readers, w, m.outID); err != nil {
			w.Close()
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	if m.removeInputs {
		for _, r := range readers {
			removeChunkFile(r.ID(), m.chunkDir, m.separator)
		}
	}
	return expectedBytes, nil
}

// mergeTwoWay merges exactly two sorted readers without heap bookkeeping.
func mergeTwoWay(a, b ChunkReader, out ChunkWriter) error {
	aOK, err := a.Next()
	if err != nil {
		return err
	}
	bOK, err := b.Next()
	if err != nil {
		return err
	}

	for aOK && bOK {
		if a.Value() <= b.Value() {
			if err := out.Put(a.Value()); err != nil {
				return err
			}
			if aOK, err = a.Next(); err != nil {
				return err
			}
		} else {
			if err := out.Put(b.Value()); err != nil {
				return err
			}
			if bOK, err = b.Next(); err != nil {
				return err
			}
		}
	}

	remaining, done := a, aOK
	if !aOK {
		remaining, done = b, bOK
	}
	for done {
		if err := out.Put(remaining.Value()); err != nil {
			return err
		}
		if done, err = remaining.Next(); err != nil {
			return err
		}
	}
	return nil
}

// mergeHeap merges three or more sorted readers using a min-heap keyed on
// each reader's current value, the generic k-way priority-queue path.
func mergeHeap(readers []ChunkReader, out ChunkWriter) error {
	h := extsortheap.New(len(readers))
	for i, r := range readers {
		ok, err := r.Next()
		if err != nil {
			return err
		}
		if ok {
			h.Push(r.Value(), i)
		}
	}

	for h.Len() > 0 {
		item := h.Pop()
		if err := out.Put(item.Value); err != nil {
			return err
		}
		ok, err := readers[item.Source].Next()
		if err != nil {
			return err
		}
		if ok {
			h.Push(readers[item.Source].Value(), item.Source)
		}
	}
	return nil
}
