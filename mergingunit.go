package extsort

import (
	"fmt"
	"log/slog"
)

// mergingUnit drives one worker's share of the merge stage: for each level
// of the task tree in turn, claim nodes from that level's queue until it is
// exhausted, then wait at the level's barrier until every participating
// worker has arrived before any of them starts the next level, since a
// level-(n+1) task's inputs are level-n outputs that may still be in
// flight.
type mergingUnit struct {
	worker int
	tm     *taskManager
	tmgr   *threadManager
	mem    *memoryManager
	codec  RecordCodec
	cfg    *Config
}

func newMergingUnit(worker int, tm *taskManager, tmgr *threadManager, mem *memoryManager, codec RecordCodec, cfg *Config) *mergingUnit {
	return &mergingUnit{worker: worker, tm: tm, tmgr: tmgr, mem: mem, codec: codec, cfg: cfg}
}

// Run processes every level of the merge queue, synchronizing at each
// level boundary via a barrier shared by the workers participating in that
// level, and returns the total bytes it personally wrote.
func (m *mergingUnit) Run(workers int) (int64, error) {
	var written int64
	for level := 0; level < m.tm.NumLevels(); level++ {
		// Every worker calls Wait exactly once per level, regardless of
		// how many tasks it happened to claim (possibly zero), so the
		// barrier's count must be the full worker pool, not that level's
		// node count.
		barrier := m.tmgr.LevelBarrier(uint32(level), workers)

		for {
			node, ok := m.tm.NextMergeTask(level)
			if !ok {
				break
			}
			slog.Info("merge task started", "worker", m.worker, "level", level, "id", node.outID, "inputs", len(node.inputs))
			task := newMergeTask(node.inputs, node.outID, node.outID.Path(m.cfg.ChunkDir, m.cfg.Separator), m.codec, m.cfg.StreamBackend, m.cfg.ChunkDir, m.cfg.Separator, m.cfg.RemoveTemporaries, m.cfg.VerifyChunks)
			wrote, err := task.run(m.mem.MergeReaderBudget(), int64(m.mem.MergeWriterBytes()))
			if err != nil {
				slog.Error("merge task failed", "worker", m.worker, "level", level, "id", node.outID, "err", err)
				return written, fmt.Errorf("extsort: worker %d merge task %s: %w", m.worker, node.outID, err)
			}
			slog.Info("merge task finished", "worker", m.worker, "level", level, "id", node.outID, "bytes", wrote)
			written += wrote
		}

		barrier.Wait()
	}
	return written, nil
}
