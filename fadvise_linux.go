//go:build linux

package extsort

import "golang.org/x/sys/unix"

// fadviseSequential hints to the kernel that a chunk file's records will
// be consumed front-to-back, as every stream backend reads them: a merge
// task's inputs and a sort task's output are never read out of order, so
// readahead can stay aggressive for the whole descriptor's lifetime.
// Best-effort: errors are silently ignored.
func fadviseSequential(chunkFd int, offset, length int64) {
	_ = unix.Fadvise(chunkFd, offset, length, unix.FADV_SEQUENTIAL)
}
