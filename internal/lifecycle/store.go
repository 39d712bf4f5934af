package lifecycle

import (
	"fmt"

	"github.com/louisbranch/statelapse/internal/segment"
)

// Store holds the lifecycle state of every object in the corpus as one dense
// array addressed through the segment offset index. It is not safe for
// concurrent mutation; the pipeline applies batches strictly sequentially.
type Store struct {
	index  *segment.Index
	states []State
}

// NewStore allocates a store with every object Present.
func NewStore(index *segment.Index) *Store {
	return &Store{index: index, states: make([]State, index.Total())}
}

// Len returns the total object count.
func (s *Store) Len() int {
	return len(s.states)
}

// StateAt returns the state of the object at global index idx.
func (s *Store) StateAt(idx int) State {
	return s.states[idx]
}

// Locate maps (segment id, in-segment number) to the object's global array
// index. An index outside the array signals a corrupt or mismatched corpus;
// the error carries every input of the computation so the offending record
// can be traced.
func (s *Store) Locate(seg, number int) (int, error) {
	offset, ok := s.index.Offset(seg)
	if !ok {
		return 0, fmt.Errorf("locate object: segment=%d number=%d outside index of %d segments", seg, number, s.index.Len())
	}
	idx := offset + number - 1
	if idx < 0 || idx >= len(s.states) {
		return 0, fmt.Errorf("locate object: segment=%d number=%d offset=%d idx=%d len=%d", seg, number, offset, idx, len(s.states))
	}
	return idx, nil
}

// Apply advances the addressed object through the transition table and
// returns the global index it mutated.
func (s *Store) Apply(seg, number int, op Operation) (int, error) {
	idx, err := s.Locate(seg, number)
	if err != nil {
		return 0, err
	}
	next, err := Transition(s.states[idx], op)
	if err != nil {
		return 0, fmt.Errorf("apply to segment=%d number=%d: %w", seg, number, err)
	}
	s.states[idx] = next
	return idx, nil
}

// Counts tallies how many objects sit in each lifecycle state.
type Counts struct {
	Present             int
	DeleteMarker        int
	Expired             int
	DeleteMarkerDeleted int
	WeirdCase           int
}

// SnapshotCounts scans the full array and tallies each state.
func (s *Store) SnapshotCounts() Counts {
	var c Counts
	for _, st := range s.states {
		switch st {
		case Present:
			c.Present++
		case DeleteMarker:
			c.DeleteMarker++
		case Expired:
			c.Expired++
		case DeleteMarkerDeleted:
			c.DeleteMarkerDeleted++
		case WeirdCase:
			c.WeirdCase++
		}
	}
	return c
}
