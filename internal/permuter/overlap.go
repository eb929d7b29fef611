package permuter

import "github.com/harshanavkis/crashmonkey/internal/model"

// sectorRange is an inclusive [Start, End] range of kernel sectors
type sectorRange struct {
	Start uint64
	End   uint64
}

// OverlapTracker answers whether a write touches any sector range already
// seen in the current epoch. Ranges are kept ordered by start sector. A
// matched range is extended in place to cover the new write; neighbouring
// ranges are not re-merged afterwards, so adjacency between stored ranges
// carries no meaning. Only the overlap boolean is part of the contract.
type OverlapTracker struct {
	ranges []sectorRange
}

// NewOverlapTracker returns an empty tracker
func NewOverlapTracker() *OverlapTracker {
	return &OverlapTracker{}
}

// Insert records the sector range of w and reports whether it intersects
// any range already tracked
func (t *OverlapTracker) Insert(w model.BlockWrite) bool {
	start := w.WriteSector
	end := writeEndSector(w)

	for i := range t.ranges {
		r := &t.ranges[i]
		if (r.Start <= start && r.End >= start) ||
			(r.Start <= end && r.End >= end) ||
			(r.Start >= start && r.End <= end) {
			// Extend the matched range to cover the new write.
			if r.Start > start {
				r.Start = start
			}
			if r.End < end {
				r.End = end
			}
			return true
		}
		if r.Start > end {
			// Ranges are ordered, so nothing further can intersect.
			// Insert here to keep the order.
			t.ranges = append(t.ranges, sectorRange{})
			copy(t.ranges[i+1:], t.ranges[i:])
			t.ranges[i] = sectorRange{Start: start, End: end}
			return false
		}
	}

	t.ranges = append(t.ranges, sectorRange{Start: start, End: end})
	return false
}

// Reset clears the tracker for a new epoch
func (t *OverlapTracker) Reset() {
	t.ranges = t.ranges[:0]
}

// writeEndSector returns the inclusive end of the write's sector range
func writeEndSector(w model.BlockWrite) uint64 {
	if w.Size == 0 {
		return w.WriteSector
	}
	return w.WriteSector + w.Size - 1
}
