//go:build !linux

package extsort

// prefaultRegion is a no-op on non-Linux platforms; MADV_POPULATE_WRITE
// prefaulting of a mapped output chunk is Linux 5.14+ specific.
func prefaultRegion(mapped []byte) {
	// No-op
}
