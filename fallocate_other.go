//go:build !linux && !darwin

package extsort

import "os"

// fallocateFile sets a chunk file's size on platforms without a native
// block-reservation syscall. It sets the reported size but, unlike
// fallocate/F_PREALLOCATE, may not reserve the underlying disk blocks.
func fallocateFile(chunkFile *os.File, size int64) error {
	return chunkFile.Truncate(size)
}
