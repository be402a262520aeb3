package extsort

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// writeSortedChunk writes already-sorted values as the chunk file for id in
// dir.
func writeSortedChunk(t *testing.T, dir string, id ChunkId, codec RecordCodec, values []uint64) {
	t.Helper()
	w, err := newChunkWriter(BackendBuffered, id.Path(dir, "_"), id, codec)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Open(4096, int64(len(values))*int64(codec.Size())); err != nil {
		t.Fatal(err)
	}
	for _, v := range values {
		if err := w.Put(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readChunkValues(t *testing.T, dir string, id ChunkId, codec RecordCodec) []uint64 {
	t.Helper()
	r, err := newChunkReader(BackendBuffered, id.Path(dir, "_"), id, codec)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Open(4096); err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var got []uint64
	for {
		ok, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, r.Value())
	}
	return got
}

func TestMergeTaskTwoWayPath(t *testing.T) {
	codec, _ := NewRecordCodec(4)
	dir := t.TempDir()

	a := ChunkId{Level: 0, ID: 0}
	b := ChunkId{Level: 0, ID: 1}
	writeSortedChunk(t, dir, a, codec, []uint64{1, 3, 5, 7})
	writeSortedChunk(t, dir, b, codec, []uint64{2, 4, 6})

	out := ChunkId{Level: 1, ID: 0}
	task := newMergeTask([]ChunkId{a, b}, out, out.Path(dir, "_"), codec, BackendBuffered, dir, "_", false, false)
	if _, err := task.run(4096, 4096); err != nil {
		t.Fatal(err)
	}

	got := readChunkValues(t, dir, out, codec)
	want := []uint64{1, 2, 3, 4, 5, 6, 7}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMergeTaskHeapPath(t *testing.T) {
	codec, _ := NewRecordCodec(4)
	dir := t.TempDir()

	inputs := []ChunkId{
		{Level: 0, ID: 0},
		{Level: 0, ID: 1},
		{Level: 0, ID: 2},
		{Level: 0, ID: 3},
	}
	values := [][]uint64{
		{1, 5, 9},
		{2, 6, 10},
		{3, 7},
		{4, 8, 11, 12},
	}
	for i, id := range inputs {
		writeSortedChunk(t, dir, id, codec, values[i])
	}

	out := ChunkId{Level: 1, ID: 0}
	task := newMergeTask(inputs, out, out.Path(dir, "_"), codec, BackendBuffered, dir, "_", false, false)
	if _, err := task.run(4096, 4096); err != nil {
		t.Fatal(err)
	}

	got := readChunkValues(t, dir, out, codec)
	if !slices.IsSorted(got) {
		t.Fatalf("output %v not sorted", got)
	}
	var total int
	for _, v := range values {
		total += len(v)
	}
	if len(got) != total {
		t.Fatalf("got %d values, want %d", len(got), total)
	}
}

func TestMergeTaskRemovesInputsWhenConfigured(t *testing.T) {
	codec, _ := NewRecordCodec(4)
	dir := t.TempDir()

	a := ChunkId{Level: 0, ID: 0}
	b := ChunkId{Level: 0, ID: 1}
	writeSortedChunk(t, dir, a, codec, []uint64{1, 2})
	writeSortedChunk(t, dir, b, codec, []uint64{3, 4})

	out := ChunkId{Level: 1, ID: 0}
	task := newMergeTask([]ChunkId{a, b}, out, out.Path(dir, "_"), codec, BackendBuffered, dir, "_", true, false)
	if _, err := task.run(4096, 4096); err != nil {
		t.Fatal(err)
	}

	for _, id := range []ChunkId{a, b} {
		if _, err := os.Stat(id.Path(dir, "_")); !os.IsNotExist(err) {
			t.Fatalf("expected input chunk %s to be removed, stat err = %v", id, err)
		}
	}
}

func TestMergeTaskFailsFatallyOnBudgetTooSmallForInputCount(t *testing.T) {
	codec, _ := NewRecordCodec(4)
	dir := t.TempDir()

	inputs := []ChunkId{
		{Level: 0, ID: 0},
		{Level: 0, ID: 1},
		{Level: 0, ID: 2},
	}
	for i, id := range inputs {
		writeSortedChunk(t, dir, id, codec, []uint64{uint64(i)})
	}

	out := ChunkId{Level: 1, ID: 0}
	outPath := filepath.Join(dir, out.Filename("_"))
	task := newMergeTask(inputs, out, outPath, codec, BackendBuffered, dir, "_", false, false)

	// An input budget of 2 bytes split across 3 inputs rounds down to
	// zero per reader, well under one record; this must fail fatally
	// rather than silently substitute a one-record buffer.
	if _, err := task.run(2, 4096); !errors.Is(err, extsorterrors.ErrBufferTooSmall) {
		t.Fatalf("run() error = %v, want %v", err, extsorterrors.ErrBufferTooSmall)
	}
}

func TestMergeTaskWithVerificationSucceeds(t *testing.T) {
	codec, _ := NewRecordCodec(4)
	dir := t.TempDir()

	a := ChunkId{Level: 0, ID: 0}
	b := ChunkId{Level: 0, ID: 1}
	writeSortedChunk(t, dir, a, codec, []uint64{10, 30, 50})
	writeSortedChunk(t, dir, b, codec, []uint64{20, 40})

	out := ChunkId{Level: 1, ID: 0}
	task := newMergeTask([]ChunkId{a, b}, out, out.Path(dir, "_"), codec, BackendBuffered, dir, "_", false, true)
	if _, err := task.run(4096, 4096); err != nil {
		t.Fatalf("verified merge failed: %v", err)
	}
	got := readChunkValues(t, dir, out, codec)
	want := []uint64{10, 20, 30, 40, 50}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

