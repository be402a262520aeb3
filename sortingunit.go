package extsort

import (
	"fmt"
	"log/slog"
)

// sortingUnit drives one worker's share of the sort stage: claim
// partitions from the task manager until none remain, running each through
// a sortTask sized by the memory manager, looping over an atomically
// claimed partition list.
type sortingUnit struct {
	worker    int
	tm        *taskManager
	mem       *memoryManager
	inputPath string
}

func newSortingUnit(worker int, tm *taskManager, mem *memoryManager, inputPath string) *sortingUnit {
	return &sortingUnit{worker: worker, tm: tm, mem: mem, inputPath: inputPath}
}

// Run claims and executes partitions until the task manager reports none
// left, returning the total bytes written across every partition it
// handled.
func (s *sortingUnit) Run() (int64, error) {
	var written int64
	for {
		task, ok := s.tm.NextPartition()
		if !ok {
			return written, nil
		}
		n, err := task.run(s.inputPath, s.mem.SortBufferBytes())
		if err != nil {
			return written, fmt.Errorf("extsort: worker %d sort partition: %w", s.worker, err)
		}
		slog.Info("chunk created", "worker", s.worker, "level", 0, "id", task.outID, "bytes", n)
		written += n
	}
}
