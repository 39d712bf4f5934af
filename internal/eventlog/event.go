// Package eventlog reads, merges, and groups the partitioned event logs
// that drive the lifecycle store.
package eventlog

import (
	"time"

	"github.com/louisbranch/statelapse/internal/lifecycle"
)

// BucketLayout is the wall-clock layout of event bucket timestamps. Input
// values may carry a fractional-second tail and are interpreted as UTC.
const BucketLayout = "2006-01-02 15:04:05"

// Event is one decoded event-log record: an operation applied to a list of
// objects in one segment at one bucket timestamp.
type Event struct {
	// Bucket is the timestamp that groups this event into a batch.
	Bucket time.Time
	// Operation is the lifecycle operation to apply.
	Operation lifecycle.Operation
	// Segment is the target segment id.
	Segment int
	// Items are the 1-indexed in-segment object numbers, in log order.
	Items []int
}

// Batch is every merged event sharing one bucket timestamp.
type Batch struct {
	Bucket time.Time
	Events []Event
}
