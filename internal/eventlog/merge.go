package eventlog

import (
	"container/heap"
	"errors"
	"io"
)

// Merger performs a k-way merge of event sources into one globally
// bucket-ordered sequence. Only the head of each live source is held in
// memory. Equal buckets resolve by source index, which keeps the merged
// order reproducible across runs.
type Merger struct {
	heads headHeap
}

type head struct {
	event  Event
	source Source
	index  int
}

type headHeap []head

func (h headHeap) Len() int { return len(h) }

func (h headHeap) Less(i, j int) bool {
	if !h[i].event.Bucket.Equal(h[j].event.Bucket) {
		return h[i].event.Bucket.Before(h[j].event.Bucket)
	}
	return h[i].index < h[j].index
}

func (h headHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *headHeap) Push(x any) { *h = append(*h, x.(head)) }

func (h *headHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewMerger primes one head per source; sources that are already empty drop
// out immediately.
func NewMerger(sources ...Source) (*Merger, error) {
	m := &Merger{heads: make(headHeap, 0, len(sources))}
	for i, src := range sources {
		evt, err := src.Next()
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.heads = append(m.heads, head{event: evt, source: src, index: i})
	}
	heap.Init(&m.heads)
	return m, nil
}

// Next emits the minimum-bucket event among live sources and advances that
// source, dropping it once exhausted. It returns io.EOF after the last
// event.
func (m *Merger) Next() (Event, error) {
	if len(m.heads) == 0 {
		return Event{}, io.EOF
	}
	top := m.heads[0]
	evt, err := top.source.Next()
	switch {
	case errors.Is(err, io.EOF):
		heap.Pop(&m.heads)
	case err != nil:
		return Event{}, err
	default:
		m.heads[0] = head{event: evt, source: top.source, index: top.index}
		heap.Fix(&m.heads, 0)
	}
	return top.event, nil
}

// Batches groups consecutive equal-bucket events from a merger into one
// batch per distinct bucket timestamp, emitted in strictly ascending order.
type Batches struct {
	merger  *Merger
	pending Event
	primed  bool
	done    bool
}

// NewBatches wraps a merger.
func NewBatches(m *Merger) *Batches {
	return &Batches{merger: m}
}

// Next drains every event sharing the next bucket timestamp. It returns
// io.EOF after the last batch.
func (b *Batches) Next() (Batch, error) {
	if b.done {
		return Batch{}, io.EOF
	}
	if !b.primed {
		evt, err := b.merger.Next()
		if errors.Is(err, io.EOF) {
			b.done = true
			return Batch{}, io.EOF
		}
		if err != nil {
			return Batch{}, err
		}
		b.pending = evt
		b.primed = true
	}

	batch := Batch{Bucket: b.pending.Bucket, Events: []Event{b.pending}}
	for {
		evt, err := b.merger.Next()
		if errors.Is(err, io.EOF) {
			b.done = true
			return batch, nil
		}
		if err != nil {
			return Batch{}, err
		}
		if !evt.Bucket.Equal(batch.Bucket) {
			b.pending = evt
			return batch, nil
		}
		batch.Events = append(batch.Events, evt)
	}
}
