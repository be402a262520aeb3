//go:build linux

package extsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes of disk space for a chunk file before
// a merge or sort task starts writing records into it, so a disk-full
// condition surfaces as an open-time error instead of a SIGBUS partway
// through a mapped write. On Linux, uses the fallocate syscall.
func fallocateFile(chunkFile *os.File, size int64) error {
	fd := int(chunkFile.Fd())
	if err := unix.Fallocate(fd, 0, 0, size); err != nil {
		// NFS and some other filesystems don't support fallocate.
		return unix.Ftruncate(fd, size)
	}
	// fallocate reserves blocks but doesn't change the reported file size.
	return unix.Ftruncate(fd, size)
}
