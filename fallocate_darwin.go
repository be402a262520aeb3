//go:build darwin

package extsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes of disk space for a chunk file before
// a merge or sort task starts writing records into it, so a disk-full
// condition surfaces as an open-time error instead of a SIGBUS partway
// through a mapped write. On macOS, uses fcntl(F_PREALLOCATE).
func fallocateFile(chunkFile *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL, // allocate all requested space or fail
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  size,
	}

	if err := unix.FcntlFstore(chunkFile.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		return unix.Ftruncate(int(chunkFile.Fd()), size)
	}

	// F_PREALLOCATE only reserves space; the file size still needs setting.
	return unix.Ftruncate(int(chunkFile.Fd()), size)
}
