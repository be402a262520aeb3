// Package extsort implements an external multi-way merge sort engine for
// fixed-width unsigned integer records, designed to sort inputs many times
// larger than available memory.
//
// # Basic Usage
//
// Sorting a file of uint32 records:
//
//	stats, err := extsort.Sort(ctx, "input.bin", "sorted.bin",
//		extsort.WithRecordSize(4),
//		extsort.WithMemoryBudget(256<<20),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("wrote %d bytes across %d chunks\n", stats.BytesWritten, stats.ChunksCreated)
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: controller.go (Sort), config.go (Option, With* functions)
//   - Record layout: record.go (RecordCodec), chunkid.go (ChunkId, filenames)
//   - Chunk I/O: stream.go (ChunkReader/ChunkWriter), stream_buffered.go,
//     stream_native.go, stream_mapped.go
//   - Sort stage: sorttask.go, radixsort.go, sortingunit.go
//   - Merge stage: mergetask.go, tasktree.go, mergingunit.go
//   - Scheduling: taskmanager.go, threadmanager.go, memorymanager.go
//   - Worker lifecycle: pipelineworker.go
//   - Platform: fallocate_*.go, fadvise_*.go, prefault_*.go (OS-specific optimizations)
package extsort
