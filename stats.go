package extsort

import "time"

// Stats summarizes one completed Sort run.
type Stats struct {
	SortDuration  time.Duration
	MergeDuration time.Duration
	BytesWritten  int64
	ChunksCreated int
	Workers       int
}
