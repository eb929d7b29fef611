package permuter

import (
	"testing"

	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/stretchr/testify/assert"
)

func rangeWrite(sector, size uint64) model.BlockWrite {
	return model.BlockWrite{WriteSector: sector, Size: size, Flags: model.FlagWrite}
}

func TestOverlapTracker_DisjointRanges(t *testing.T) {
	tr := NewOverlapTracker()

	assert.False(t, tr.Insert(rangeWrite(0, 10)))
	assert.False(t, tr.Insert(rangeWrite(20, 10)))
	assert.False(t, tr.Insert(rangeWrite(40, 10)))
	// Fits in the gap between existing ranges.
	assert.False(t, tr.Insert(rangeWrite(12, 5)))
}

func TestOverlapTracker_Intersections(t *testing.T) {
	tests := []struct {
		name     string
		existing model.BlockWrite
		probe    model.BlockWrite
	}{
		{"start inside", rangeWrite(0, 10), rangeWrite(5, 10)},
		{"end inside", rangeWrite(10, 10), rangeWrite(5, 10)},
		{"fully contains", rangeWrite(10, 5), rangeWrite(0, 100)},
		{"fully contained", rangeWrite(0, 100), rangeWrite(10, 5)},
		{"identical", rangeWrite(7, 3), rangeWrite(7, 3)},
		{"single sector touch", rangeWrite(0, 10), rangeWrite(9, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewOverlapTracker()
			assert.False(t, tr.Insert(tt.existing))
			assert.True(t, tr.Insert(tt.probe))
		})
	}
}

func TestOverlapTracker_AdjacentIsNotOverlap(t *testing.T) {
	tr := NewOverlapTracker()

	// [0,9] and [10,19] touch but do not intersect.
	assert.False(t, tr.Insert(rangeWrite(0, 10)))
	assert.False(t, tr.Insert(rangeWrite(10, 10)))
}

func TestOverlapTracker_ExtendsMatchedRange(t *testing.T) {
	tr := NewOverlapTracker()

	assert.False(t, tr.Insert(rangeWrite(10, 10)))
	// Extends [10,19] to [5,24].
	assert.True(t, tr.Insert(rangeWrite(5, 20)))
	// Both ends of the extension are now covered.
	assert.True(t, tr.Insert(rangeWrite(5, 1)))
	assert.True(t, tr.Insert(rangeWrite(24, 1)))
	assert.False(t, tr.Insert(rangeWrite(25, 1)))
}

func TestOverlapTracker_ExtensionDoesNotRemergeNeighbours(t *testing.T) {
	tr := NewOverlapTracker()

	assert.False(t, tr.Insert(rangeWrite(0, 6)))   // [0,5]
	assert.False(t, tr.Insert(rangeWrite(10, 6)))  // [10,15]
	// Hits [0,5] and stretches it to [0,12], now overlapping [10,15].
	assert.True(t, tr.Insert(rangeWrite(4, 9)))
	// Still reported as overlapping whichever stored range matches first.
	assert.True(t, tr.Insert(rangeWrite(13, 2)))
	assert.True(t, tr.Insert(rangeWrite(11, 1)))
}

func TestOverlapTracker_ZeroSizeWrite(t *testing.T) {
	tr := NewOverlapTracker()

	// A zero-size write occupies just its starting sector.
	assert.False(t, tr.Insert(rangeWrite(5, 0)))
	assert.True(t, tr.Insert(rangeWrite(5, 1)))
	assert.False(t, tr.Insert(rangeWrite(6, 1)))
}

func TestOverlapTracker_Reset(t *testing.T) {
	tr := NewOverlapTracker()

	assert.False(t, tr.Insert(rangeWrite(0, 10)))
	tr.Reset()
	assert.False(t, tr.Insert(rangeWrite(0, 10)))
}
