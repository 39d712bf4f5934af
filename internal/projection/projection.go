// Package projection applies merged event batches onto the lifecycle store
// and emits one summary per batch for rendering and bookkeeping.
package projection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/louisbranch/statelapse/internal/eventlog"
	"github.com/louisbranch/statelapse/internal/lifecycle"
)

// Summary aggregates one processed batch.
type Summary struct {
	// Index is the zero-based frame sequence number.
	Index int
	// Bucket is the batch timestamp.
	Bucket time.Time
	// SinceStart is the elapsed time since the first batch.
	SinceStart time.Duration
	// TotalActions is the number of object operations in the batch.
	TotalActions int64
	// Rate is TotalActions divided by the difference of this bucket's and
	// the previous bucket's unix seconds; 0 for the first batch or a zero
	// difference.
	Rate int64
	// Counts is the post-batch state census.
	Counts lifecycle.Counts
}

// BatchSource yields batches in strictly ascending bucket order and io.EOF
// after the last one.
type BatchSource interface {
	Next() (eventlog.Batch, error)
}

// FrameSink renders and persists one frame per summary.
type FrameSink interface {
	EmitFrame(ctx context.Context, sum Summary) error
}

// BatchRecorder persists per-batch statistics.
type BatchRecorder interface {
	RecordBatch(ctx context.Context, sum Summary) error
}

// Toucher observes every mutated global object index.
type Toucher interface {
	Touch(idx int)
}

// Processor drives the merge → apply → render pipeline. Store, Batches, and
// Sink are required; Recorder and Touched are optional hooks.
type Processor struct {
	Store    *lifecycle.Store
	Batches  BatchSource
	Sink     FrameSink
	Recorder BatchRecorder
	Touched  Toucher
}

// Process consumes every batch in order and returns the number of frames
// emitted. Any failure aborts the run; there is no partial success.
func (p *Processor) Process(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.Store == nil {
		return 0, errors.New("lifecycle store is not configured")
	}
	if p.Batches == nil {
		return 0, errors.New("batch source is not configured")
	}
	if p.Sink == nil {
		return 0, errors.New("frame sink is not configured")
	}

	frames := 0
	var first, previous time.Time
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		batch, err := p.Batches.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		if frames == 0 {
			first = batch.Bucket
			previous = batch.Bucket
		}
		log.Printf("processing bucket %s", batch.Bucket.Format(eventlog.BucketLayout))

		var totalActions int64
		for _, evt := range batch.Events {
			totalActions += int64(len(evt.Items))
			for _, number := range evt.Items {
				idx, err := p.Store.Apply(evt.Segment, number, evt.Operation)
				if err != nil {
					return frames, err
				}
				if p.Touched != nil {
					p.Touched.Touch(idx)
				}
			}
		}

		elapsed := batch.Bucket.Unix() - previous.Unix()
		var rate int64
		if elapsed > 0 {
			rate = totalActions / elapsed
		}
		counts := p.Store.SnapshotCounts()
		sum := Summary{
			Index:        frames,
			Bucket:       batch.Bucket,
			SinceStart:   batch.Bucket.Sub(first),
			TotalActions: totalActions,
			Rate:         rate,
			Counts:       counts,
		}
		log.Printf("present=%d delete_marker=%d expired=%d delete_marker_deleted=%d weird_case=%d per_second=%d",
			counts.Present, counts.DeleteMarker, counts.Expired, counts.DeleteMarkerDeleted, counts.WeirdCase, rate)

		if err := p.Sink.EmitFrame(ctx, sum); err != nil {
			return frames, fmt.Errorf("emit frame %d: %w", sum.Index, err)
		}
		if p.Recorder != nil {
			if err := p.Recorder.RecordBatch(ctx, sum); err != nil {
				return frames, fmt.Errorf("record batch %d: %w", sum.Index, err)
			}
		}
		previous = batch.Bucket
		frames++
	}
}
