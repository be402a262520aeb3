package extsort

import "testing"

func TestChunkIdFilename(t *testing.T) {
	tests := []struct {
		id   ChunkId
		sep  string
		want string
	}{
		{ChunkId{Level: 0, ID: 0}, "_", "0_0"},
		{ChunkId{Level: 1, ID: 10}, "_", "1_a"},
		{ChunkId{Level: 255, ID: 255}, "-", "ff-ff"},
	}
	for _, tc := range tests {
		if got := tc.id.Filename(tc.sep); got != tc.want {
			t.Errorf("Filename(%+v, %q) = %q, want %q", tc.id, tc.sep, got, tc.want)
		}
	}
}

func TestChunkIdLess(t *testing.T) {
	a := ChunkId{Level: 0, ID: 5}
	b := ChunkId{Level: 0, ID: 6}
	c := ChunkId{Level: 1, ID: 0}

	if !a.Less(b) {
		t.Error("expected a < b by id within same level")
	}
	if !a.Less(c) {
		t.Error("expected a < c by level")
	}
	if c.Less(a) {
		t.Error("expected c not less than a")
	}
}

func TestChunkIDAllocatorIsSequentialFromZero(t *testing.T) {
	alloc := newChunkIDAllocator(2)
	for i := uint32(0); i < 5; i++ {
		id := alloc.Next()
		if id.Level != 2 || id.ID != i {
			t.Fatalf("Next() = %+v, want {Level:2 ID:%d}", id, i)
		}
	}
}
