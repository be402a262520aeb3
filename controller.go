package extsort

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// Sort reads fixed-width unsigned integer records from inputPath, sorts
// them externally, and writes the fully sorted result to outputPath. It is
// the entry point for the whole run:
// validate configuration, partition the input, run the sort and merge
// stages across a worker pool, then promote the final chunk to
// outputPath.
//
// ctx is consulted only before the pipeline starts and is not checked once
// workers are running; a long sort cannot be cancelled mid-flight without
// leaving partially written chunk files behind, so cancellation is
// intentionally coarse.
func Sort(ctx context.Context, inputPath, outputPath string, opts ...Option) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	codec, err := NewRecordCodec(cfg.RecordSize)
	if err != nil {
		return Stats{}, err
	}
	// A nonzero fan-in below 2 is clamped up rather than rejected; 0 is
	// reserved to mean "auto" and is left alone here.
	if cfg.FanIn != 0 && cfg.FanIn < 2 {
		cfg.FanIn = 2
	}
	switch cfg.StreamBackend {
	case BackendMapped, BackendBuffered, BackendNative:
	default:
		return Stats{}, fmt.Errorf("%w: %d", extsorterrors.ErrUnknownBackend, cfg.StreamBackend)
	}

	workers := resolveWorkers(cfg)
	mem := newMemoryManager(cfg, workers)

	info, err := os.Stat(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("extsort: stat input: %w", err)
	}
	if info.Size()%int64(codec.Size()) != 0 {
		return Stats{}, fmt.Errorf("%w: input", extsorterrors.ErrChunkMisaligned)
	}
	totalSize := info.Size()
	if totalSize == 0 {
		// An empty input produces an empty output with no chunk directory
		// and no worker involvement at all; there is nothing to sort.
		if err := writeEmptyOutput(outputPath); err != nil {
			return Stats{}, err
		}
		return Stats{Workers: workers}, nil
	}

	if err := os.MkdirAll(cfg.ChunkDir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("extsort: create chunk dir: %w", err)
	}

	maxPartitionBytes := mem.perWorker
	if totalSize < cfg.MemoryBudget {
		// The input fits comfortably in the memory budget, so a naive
		// per-worker chunk size would produce fewer partitions than
		// workers and leave some of the pool idle. Shrink the chunk size
		// so at least 2*workers level-0 chunks exist and the pipeline has
		// enough work to parallelize. The chunk size never drops below one
		// record, so an input of fewer than 2*workers records gets one
		// level-0 chunk per record.
		if shrunk := totalSize / int64(2*workers); shrunk < maxPartitionBytes {
			maxPartitionBytes = max(shrunk, int64(codec.Size()))
		}
	}
	partitions, err := planPartitions(totalSize, maxPartitionBytes, codec, cfg)
	if err != nil {
		return Stats{}, err
	}

	tm := newTaskManager(partitions)
	tmgr := newThreadManager()

	slog.Info("sort starting", "input", inputPath, "output", outputPath, "workers", workers, "partitions", len(partitions))

	start := time.Now()
	var totalBytes atomic.Int64
	runErr := tmgr.spawnAndJoin(workers, func(i int) error {
		w := &pipelineWorker{
			index:     i,
			workers:   workers,
			tm:        tm,
			tmgr:      tmgr,
			mem:       mem,
			cfg:       cfg,
			codec:     codec,
			inputPath: inputPath,
			l0Count:   len(partitions),
		}
		n, err := w.run()
		totalBytes.Add(n)
		return err
	})
	elapsed := time.Since(start)

	if runErr != nil {
		slog.Error("sort failed", "input", inputPath, "err", runErr)
		return Stats{}, fmt.Errorf("%w: %v", extsorterrors.ErrWorkerFailed, runErr)
	}

	finalID := tm.FinalChunkID()
	finalPath := finalID.Path(cfg.ChunkDir, cfg.Separator)
	if err := promoteFinalChunk(finalPath, outputPath); err != nil {
		return Stats{}, err
	}
	slog.Info("sort complete", "output", outputPath, "bytes_written", totalBytes.Load(), "duration", elapsed)

	return Stats{
		SortDuration:  elapsed,
		MergeDuration: 0,
		BytesWritten:  totalBytes.Load(),
		ChunksCreated: len(partitions) + mergeNodeCount(tm),
		Workers:       workers,
	}, nil
}

// planPartitions splits totalSize bytes into chunks no larger than
// maxBytes (rounded down to a whole number of records), producing at least
// one partition.
func planPartitions(totalSize, maxBytes int64, codec RecordCodec, cfg *Config) ([]sortTask, error) {
	if maxBytes < int64(codec.Size()) {
		return nil, extsorterrors.ErrBufferTooSmall
	}
	partSize := codec.RoundDown(maxBytes)
	if partSize == 0 {
		return nil, extsorterrors.ErrBufferTooSmall
	}

	var partitions []sortTask
	alloc := newChunkIDAllocator(0)
	for offset := int64(0); offset < totalSize; offset += partSize {
		size := partSize
		if offset+size > totalSize {
			size = totalSize - offset
		}
		id := alloc.Next()
		partitions = append(partitions, *newSortTask(offset, size, codec, cfg.SortAlgorithm, id, id.Path(cfg.ChunkDir, cfg.Separator), cfg.StreamBackend))
	}
	return partitions, nil
}

// writeEmptyOutput creates an empty file at outputPath, the boundary-case
// output for an empty input.
func writeEmptyOutput(outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("extsort: create output dir: %w", err)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("extsort: create empty output: %w", err)
	}
	return f.Close()
}

// promoteFinalChunk moves the chunk at finalPath to outputPath, the last
// step once the merge queue is drained.
func promoteFinalChunk(finalPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil && filepath.Dir(outputPath) != "." {
		return fmt.Errorf("extsort: create output dir: %w", err)
	}
	if err := os.Rename(finalPath, outputPath); err != nil {
		return fmt.Errorf("extsort: promote final chunk: %w", err)
	}
	return nil
}

func mergeNodeCount(tm *taskManager) int {
	n := 0
	for level := 0; level < tm.NumLevels(); level++ {
		n += tm.LevelSize(level)
	}
	return n
}
