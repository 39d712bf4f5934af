// Package stats models run bookkeeping for the pipeline: one Run row per
// execution plus one Batch row per rendered frame, and a probabilistic
// tracker for how many distinct objects a run touched.
package stats

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	hll "github.com/axiomhq/hyperloglog"

	"github.com/louisbranch/statelapse/internal/lifecycle"
)

var (
	// ErrNotFound indicates a requested run record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a batch row with that index was already recorded.
	ErrAlreadyExists = errors.New("record already exists")
)

// Run describes one pipeline execution.
type Run struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	SegmentCount int
	ObjectCount  int
	OutputSize   int
	FrameCount   int
	// DistinctTouched is the estimated number of distinct objects the run
	// mutated at least once.
	DistinctTouched int64
}

// Finished reports whether the run recorded a completion time.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Batch describes one processed event batch within a run.
type Batch struct {
	RunID        int64
	Index        int
	Bucket       time.Time
	TotalActions int64
	Rate         int64
	Counts       lifecycle.Counts
}

// Store persists runs and their batches.
type Store interface {
	StartRun(ctx context.Context, startedAt time.Time, segmentCount, objectCount, outputSize int) (int64, error)
	RecordBatch(ctx context.Context, batch Batch) error
	FinishRun(ctx context.Context, runID int64, finishedAt time.Time, frameCount int, distinctTouched int64) error
	GetRun(ctx context.Context, runID int64) (Run, error)
	ListBatches(ctx context.Context, runID int64) ([]Batch, error)
}

// TouchTracker estimates the number of distinct mutated objects without
// storing a flag per object.
type TouchTracker struct {
	sketch *hll.Sketch
	buf    [8]byte
}

// NewTouchTracker returns an empty tracker.
func NewTouchTracker() *TouchTracker {
	return &TouchTracker{sketch: hll.New()}
}

// Touch records a mutation of the object at the given global index.
func (t *TouchTracker) Touch(idx int) {
	binary.BigEndian.PutUint64(t.buf[:], uint64(idx))
	t.sketch.Insert(t.buf[:])
}

// Estimate reports the approximate count of distinct touched objects.
func (t *TouchTracker) Estimate() uint64 {
	return t.sketch.Estimate()
}
