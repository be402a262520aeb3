package extsort

import "log/slog"

// pipelineWorker runs one goroutine's full lifecycle across both pipeline
// stages: drain sort partitions, race the other workers through the
// sort-to-merge latch (exactly one of them builds the merge queue), then
// drain merge tasks level by level, calling into the sorting unit and then
// the merging unit in that order.
type pipelineWorker struct {
	index   int
	workers int

	tm   *taskManager
	tmgr *threadManager
	mem  *memoryManager
	cfg  *Config

	codec     RecordCodec
	inputPath string

	// l0Count is the partition count computed once by the controller
	// before any worker starts; every partition produces exactly one
	// level-0 chunk, so this is also the initial task-tree leaf count.
	l0Count int
}

func (w *pipelineWorker) run() (int64, error) {
	su := newSortingUnit(w.index, w.tm, w.mem, w.inputPath)
	sortBytes, err := su.Run()
	if err != nil {
		return 0, err
	}

	latch := w.tmgr.SortToMerge()
	if latch.Admit() {
		w.tm.SetL0Count(w.l0Count, w.cfg.FanIn, w.cfg.TreeHeight, w.cfg.FlatMode)
		latch.Release()
	} else {
		latch.Wait()
	}

	mu := newMergingUnit(w.index, w.tm, w.tmgr, w.mem, w.codec, w.cfg)
	mergeBytes, err := mu.Run(w.workers)
	if err != nil {
		slog.Warn("worker exiting with error", "worker", w.index, "bytes", sortBytes+mergeBytes, "err", err)
		return sortBytes + mergeBytes, err
	}
	slog.Debug("worker exiting", "worker", w.index, "bytes", sortBytes+mergeBytes)
	return sortBytes + mergeBytes, nil
}
