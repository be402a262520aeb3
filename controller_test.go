package extsort

import (
	"context"
	"encoding/binary"
	"hash/crc64"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeUint32File(t *testing.T, path string, values []uint32) {
	t.Helper()
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func readUint32File(t *testing.T, path string) []uint32 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data)%4 != 0 {
		t.Fatalf("%s: length %d not a multiple of 4", path, len(data))
	}
	values := make([]uint32, len(data)/4)
	for i := range values {
		values[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return values
}

// TestSortScenarioS1 through TestSortScenarioS3 reproduce the concrete
// end-to-end byte scenarios for 32-bit little-endian unsigned records.
func TestSortScenarioS1(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, []uint32{3, 1, 2})

	if _, err := Sort(context.Background(), in, out, WithChunkDir(filepath.Join(dir, "chunks"))); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	want := []uint32{1, 2, 3}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortScenarioS2(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, []uint32{0xFFFFFFFF, 0})

	if _, err := Sort(context.Background(), in, out, WithChunkDir(filepath.Join(dir, "chunks"))); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	want := []uint32{0, 0xFFFFFFFF}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortScenarioS3(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, []uint32{7, 6, 5, 4, 3, 2, 1, 0})

	if _, err := Sort(context.Background(), in, out, WithChunkDir(filepath.Join(dir, "chunks"))); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	want := []uint32{0, 1, 2, 3, 4, 5, 6, 7}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestSortScenarioS4 reproduces the Fibonacci-hashed permutation scenario:
// value i placed at position (i*2654435761) mod 1024, expecting output
// 0..1023 in order.
func TestSortScenarioS4(t *testing.T) {
	const n = 1024
	values := make([]uint32, n)
	for i := 0; i < n; i++ {
		pos := (uint64(i) * 2654435761) % n
		values[pos] = uint32(i)
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, values)

	if _, err := Sort(context.Background(), in, out,
		WithChunkDir(filepath.Join(dir, "chunks")),
		WithMemoryBudget(4096),
		WithFanIn(4),
	); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	for i, v := range got {
		if v != uint32(i) {
			t.Fatalf("position %d: got %d, want %d", i, v, i)
		}
	}
}

// TestSortScenarioS5 sorts a larger batch of pseudo-random records under a
// tight memory budget (forcing multiple partitions and merge levels) and
// checks the result against an independent in-memory sort via CRC64.
func TestSortScenarioS5(t *testing.T) {
	rng := newTestRNG(t)
	const n = 20000
	values := make([]uint32, n)
	for i := range values {
		values[i] = rng.Uint32()
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, values)

	if _, err := Sort(context.Background(), in, out,
		WithChunkDir(filepath.Join(dir, "chunks")),
		WithMemoryBudget(8192),
		WithFanIn(4),
	); err != nil {
		t.Fatal(err)
	}

	got := readUint32File(t, out)
	if !slices.IsSorted(got) {
		t.Fatal("output is not sorted")
	}

	want := append([]uint32(nil), values...)
	slices.Sort(want)

	table := crc64.MakeTable(crc64.ISO)
	if crc64.Checksum(u32Bytes(got), table) != crc64.Checksum(u32Bytes(want), table) {
		t.Fatal("CRC64 mismatch between external sort and in-memory sort")
	}
}

// TestSortScenarioS6 covers the empty-input boundary: zero-length input
// produces a zero-length output and no error.
func TestSortScenarioS6(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	if err := os.WriteFile(in, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := Sort(context.Background(), in, out, WithChunkDir(filepath.Join(dir, "chunks")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Fatalf("output size = %d, want 0", info.Size())
	}
	if stats.ChunksCreated != 0 {
		t.Fatalf("ChunksCreated = %d, want 0", stats.ChunksCreated)
	}
}

func TestSortSingleRecordInputEqualsOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, []uint32{42})

	if _, err := Sort(context.Background(), in, out, WithChunkDir(filepath.Join(dir, "chunks"))); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	if !slices.Equal(got, []uint32{42}) {
		t.Fatalf("got %v, want [42]", got)
	}
}

func TestSortAlreadySortedInputUnchanged(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	values := make([]uint32, 500)
	for i := range values {
		values[i] = uint32(i)
	}
	writeUint32File(t, in, values)

	if _, err := Sort(context.Background(), in, out,
		WithChunkDir(filepath.Join(dir, "chunks")),
		WithMemoryBudget(1024),
		WithFanIn(3),
	); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	if !slices.Equal(got, values) {
		t.Fatal("already-sorted input was not preserved")
	}
}

func TestSortSingleWorkerStillWorks(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeUint32File(t, in, []uint32{9, 3, 7, 1, 5})

	if _, err := Sort(context.Background(), in, out,
		WithChunkDir(filepath.Join(dir, "chunks")),
		WithWorkers(1),
		WithMemoryBudget(64),
		WithFanIn(2),
	); err != nil {
		t.Fatal(err)
	}
	got := readUint32File(t, out)
	if !slices.IsSorted(got) {
		t.Fatalf("got %v, not sorted", got)
	}
}

// TestSortFanInOneIsClampedUpToTwo exercises spec.md §5 Progress: a
// configured fan-in below 2 is silently clamped up to 2, not rejected.
func TestSortFanInOneIsClampedUpToTwo(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	values := make([]uint32, 64)
	for i := range values {
		values[i] = uint32(63 - i)
	}
	writeUint32File(t, in, values)

	if _, err := Sort(context.Background(), in, out,
		WithChunkDir(filepath.Join(dir, "chunks")),
		WithMemoryBudget(64),
		WithFanIn(1),
	); err != nil {
		t.Fatalf("WithFanIn(1) should clamp to 2, not fail: %v", err)
	}
	got := readUint32File(t, out)
	want := append([]uint32(nil), values...)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortRadixAlgorithmMatchesComparison(t *testing.T) {
	rng := newTestRNG(t)
	values := make([]uint32, 3000)
	for i := range values {
		values[i] = rng.Uint32()
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	writeUint32File(t, in, values)

	outA := filepath.Join(dir, "out_a.bin")
	outB := filepath.Join(dir, "out_b.bin")

	if _, err := Sort(context.Background(), in, outA,
		WithChunkDir(filepath.Join(dir, "chunks_a")),
		WithSortAlgorithm(SortComparison),
		WithMemoryBudget(4096),
	); err != nil {
		t.Fatal(err)
	}
	if _, err := Sort(context.Background(), in, outB,
		WithChunkDir(filepath.Join(dir, "chunks_b")),
		WithSortAlgorithm(SortRadix),
		WithMemoryBudget(4096),
	); err != nil {
		t.Fatal(err)
	}

	a := readUint32File(t, outA)
	b := readUint32File(t, outB)
	if !slices.Equal(a, b) {
		t.Fatal("comparison and radix sort algorithms disagree")
	}
}

func u32Bytes(values []uint32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
