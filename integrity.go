package extsort

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// checksumFolder accumulates an order-independent content checksum across a
// sequence of records by XORing each record's xxhash digest into a running
// total, grounded on a streaming payload-hash pattern common for content
// digests but made commutative rather than sequential:
// a chunk's checksum does not depend on the order its records were folded
// in, so a merge's output checksum can be compared against the XOR of its
// inputs' checksums regardless of how the merge interleaved them.
type checksumFolder struct {
	acc uint64
	buf [8]byte
}

func (f *checksumFolder) fold(value uint64) {
	binary.LittleEndian.PutUint64(f.buf[:], value)
	f.acc ^= xxhash.Sum64(f.buf[:])
}

func (f *checksumFolder) sum() uint64 { return f.acc }

// foldAll combines a set of per-chunk checksums (e.g. a merge task's
// inputs) into the single value their union must fold to.
func foldAll(sums ...uint64) uint64 {
	var total uint64
	for _, s := range sums {
		total ^= s
	}
	return total
}

// verifyMergeChecksum compares the XOR-fold of readers' checksums against
// w's checksum, returning ErrChecksumMismatch (wrapped with outID and both
// values) if they disagree.
func verifyMergeChecksum(readers []ChunkReader, w ChunkWriter, outID ChunkId) error {
	sums := make([]uint64, len(readers))
	for i, r := range readers {
		sums[i] = r.Checksum()
	}
	if want, got := foldAll(sums...), w.Checksum(); want != got {
		return fmt.Errorf("%w: chunk %s: inputs fold to %x, output folds to %x",
			extsorterrors.ErrChecksumMismatch, outID, want, got)
	}
	return nil
}
