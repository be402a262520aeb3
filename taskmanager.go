package extsort

import "sync/atomic"

// levelQueue is one task-tree level's nodes plus an atomic claim cursor, so
// workers draining a level never contend on a shared lock.
type levelQueue struct {
	nodes  []taskTreeNode
	cursor atomic.Int64
}

// taskManager hands out sort-stage partitions and merge-stage tasks to
// worker goroutines without a shared lock on the hot path: partition
// assignment is a single atomic cursor, and merge tasks are dispensed one
// level at a time from per-level queues built once the sort stage
// completes.
type taskManager struct {
	partitions []sortTask
	cursor     atomic.Int64

	levels  []*levelQueue
	l0Count int
}

func newTaskManager(partitions []sortTask) *taskManager {
	return &taskManager{partitions: partitions}
}

// NextPartition returns the next unclaimed sort partition, or false once
// all partitions have been claimed.
func (tm *taskManager) NextPartition() (*sortTask, bool) {
	i := tm.cursor.Add(1) - 1
	if int(i) >= len(tm.partitions) {
		return nil, false
	}
	return &tm.partitions[i], true
}

// SetL0Count records how many level-0 chunks the sort stage produced, then
// builds the per-level merge queues from it. Called exactly once, by
// whichever worker is admitted through the thread manager's sort-to-merge
// latch.
func (tm *taskManager) SetL0Count(n int, fanIn, treeHeight int, flatMode bool) {
	tm.l0Count = n
	nodes := buildTaskTree(n, fanIn, treeHeight, flatMode)

	var cur []taskTreeNode
	var curLevel uint32
	flush := func() {
		if cur != nil {
			tm.levels = append(tm.levels, &levelQueue{nodes: cur})
		}
	}
	for i, node := range nodes {
		if i == 0 {
			curLevel = node.level
		} else if node.level != curLevel {
			flush()
			cur = nil
			curLevel = node.level
		}
		cur = append(cur, node)
	}
	flush()
}

// L0Count returns the level-0 chunk count recorded by SetL0Count.
func (tm *taskManager) L0Count() int {
	return tm.l0Count
}

// NumLevels returns how many merge levels exist.
func (tm *taskManager) NumLevels() int {
	return len(tm.levels)
}

// LevelSize returns the number of nodes at the given 0-based level index.
func (tm *taskManager) LevelSize(levelIdx int) int {
	if levelIdx < 0 || levelIdx >= len(tm.levels) {
		return 0
	}
	return len(tm.levels[levelIdx].nodes)
}

// NextMergeTask returns the next unclaimed node within the given 0-based
// level index, or false once that level is exhausted.
func (tm *taskManager) NextMergeTask(levelIdx int) (*taskTreeNode, bool) {
	if levelIdx < 0 || levelIdx >= len(tm.levels) {
		return nil, false
	}
	lq := tm.levels[levelIdx]
	i := lq.cursor.Add(1) - 1
	if int(i) >= len(lq.nodes) {
		return nil, false
	}
	return &lq.nodes[i], true
}

// FinalChunkID returns the id of the chunk holding fully sorted output, or
// the single level-0 chunk if no merging was needed.
func (tm *taskManager) FinalChunkID() ChunkId {
	if len(tm.levels) == 0 {
		return ChunkId{Level: 0, ID: 0}
	}
	last := tm.levels[len(tm.levels)-1].nodes
	return last[len(last)-1].outID
}
