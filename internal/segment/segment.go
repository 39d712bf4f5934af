// Package segment builds the offset index that maps two-level object ids
// (segment id plus 1-indexed in-segment number) onto one dense array.
package segment

import "sort"

// Descriptor declares how many objects one segment holds.
type Descriptor struct {
	// Segment is the integer segment id. Ids must be distinct and dense
	// starting at 1; neither property is validated, a corpus that breaks
	// them leaves every later lookup ill-defined.
	Segment int `json:"segment"`
	// Num is the object count of the segment.
	Num int `json:"num"`
}

// Index is the ascending-by-id segment table with one exclusive prefix-sum
// offset per segment.
type Index struct {
	offsets []int
	total   int
}

// BuildIndex sorts descriptors ascending by segment id and computes the
// exclusive prefix sum of their object counts.
func BuildIndex(descriptors []Descriptor) *Index {
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Segment < sorted[j].Segment
	})

	offsets := make([]int, len(sorted))
	total := 0
	for i, d := range sorted {
		offsets[i] = total
		total += d.Num
	}
	return &Index{offsets: offsets, total: total}
}

// Len returns the number of segments in the index.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.offsets)
}

// Total returns the object count summed across all segments.
func (x *Index) Total() int {
	if x == nil {
		return 0
	}
	return x.total
}

// Offset returns the global index of the first object in the given segment.
// The boolean reports whether the segment id falls inside the table.
func (x *Index) Offset(segment int) (int, bool) {
	if x == nil || segment < 1 || segment > len(x.offsets) {
		return 0, false
	}
	return x.offsets[segment-1], true
}
