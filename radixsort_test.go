package extsort

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(s1, s2))
}

func TestRadixSortUint64MatchesSliceSort(t *testing.T) {
	rng := newTestRNG(t)
	for _, recordSize := range []int{1, 2, 4, 8} {
		mask := recordMaskForTest(recordSize)
		for _, n := range []int{0, 1, 2, 17, 500} {
			values := make([]uint64, n)
			for i := range values {
				values[i] = rng.Uint64() & mask
			}
			want := append([]uint64(nil), values...)
			slices.Sort(want)

			got := append([]uint64(nil), values...)
			radixSortUint64(got, recordSize)

			if !slices.Equal(got, want) {
				t.Fatalf("recordSize=%d n=%d: radix sort mismatch", recordSize, n)
			}
		}
	}
}

func TestRadixSortUint64PreservesDuplicates(t *testing.T) {
	values := []uint64{5, 5, 5, 5}
	radixSortUint64(values, 4)
	for _, v := range values {
		if v != 5 {
			t.Fatalf("got %v, want all 5s", values)
		}
	}
}
