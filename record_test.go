package extsort

import (
	"errors"
	"testing"

	extsorterrors "github.com/tamirms/extsort/errors"
)

func TestNewRecordCodecRejectsInvalidSize(t *testing.T) {
	for _, size := range []int{0, 3, 5, 7, 9, 16} {
		if _, err := NewRecordCodec(size); err == nil {
			t.Errorf("size %d: expected error, got nil", size)
		} else if !errors.Is(err, extsorterrors.ErrInvalidRecordSize) {
			t.Errorf("size %d: got %v, want ErrInvalidRecordSize", size, err)
		}
	}
}

func TestRecordCodecRoundTrip(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8} {
		codec, err := NewRecordCodec(size)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		buf := make([]byte, size)
		value := recordMaskForTest(size)
		codec.Encode(value, buf)
		got := codec.Decode(buf)
		if got != value {
			t.Errorf("size %d: round trip got %d, want %d", size, got, value)
		}
	}
}

func TestRecordCodecRoundDownAndCount(t *testing.T) {
	codec, err := NewRecordCodec(4)
	if err != nil {
		t.Fatal(err)
	}
	if got := codec.RoundDown(13); got != 12 {
		t.Errorf("RoundDown(13) = %d, want 12", got)
	}
	if got := codec.Count(12); got != 3 {
		t.Errorf("Count(12) = %d, want 3", got)
	}
	if got := codec.RoundDown(0); got != 0 {
		t.Errorf("RoundDown(0) = %d, want 0", got)
	}
}

func recordMaskForTest(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (uint(size) * 8)) - 1
}

