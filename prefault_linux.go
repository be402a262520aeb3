//go:build linux

package extsort

import "golang.org/x/sys/unix"

// MADV_POPULATE_WRITE was added in Linux 5.14.
// On older kernels, madvise returns EINVAL, which is ignored.
const madvPopulateWrite = 23

// prefaultRegion asks the kernel to fault in every page of a sort or merge
// task's freshly mmap'd output chunk up front, before any record is
// written into it, trading one bulk page-fault storm for avoiding one
// fault per write as the task progresses.
func prefaultRegion(mapped []byte) {
	if len(mapped) == 0 {
		return
	}
	_ = unix.Madvise(mapped, madvPopulateWrite)
}
