package strategy

import (
	"testing"

	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/harshanavkis/crashmonkey/internal/permuter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEpochs(t *testing.T, trace []model.BlockWrite) []*model.Epoch {
	t.Helper()
	p := permuter.NewPermuter(nil, nil)
	p.InitDataVector(512, trace)
	return p.Epochs()
}

func tracedWrite(sector, size uint64, flags model.Flags) model.BlockWrite {
	var data []byte
	if size > 0 && flags&model.FlagCheckpoint == 0 {
		data = make([]byte, size)
	}
	return model.BlockWrite{WriteSector: sector, Size: size, Flags: flags, Data: data}
}

func multiEpochTrace() []model.BlockWrite {
	// Small sizes keep the sector ranges disjoint, so the epochs have no
	// overlaps and in-epoch shuffling stays legal.
	return []model.BlockWrite{
		tracedWrite(0, 4, model.FlagWrite),
		tracedWrite(8, 4, model.FlagWrite),
		tracedWrite(100, 0, model.FlagFlush),
		tracedWrite(16, 4, model.FlagWrite),
		tracedWrite(24, 4, model.FlagWrite),
		tracedWrite(200, 0, model.FlagFlush),
		tracedWrite(32, 4, model.FlagWrite),
	}
}

func TestRandom_EmptyEpochs(t *testing.T) {
	s := NewRandom(1)

	var res model.PermuteResult
	ops, ok := s.ProposeState(nil, &res)
	assert.False(t, ok)
	assert.Empty(t, ops)

	writes, ok := s.ProposeSectorState(nil, 512, &res)
	assert.False(t, ok)
	assert.Empty(t, writes)
}

func TestRandom_DeterministicFromSeed(t *testing.T) {
	epochs := buildEpochs(t, multiEpochTrace())

	a := NewRandom(42)
	b := NewRandom(42)
	var resA, resB model.PermuteResult
	for i := 0; i < 20; i++ {
		opsA, okA := a.ProposeState(epochs, &resA)
		opsB, okB := b.ProposeState(epochs, &resB)
		require.Equal(t, okA, okB)
		require.Equal(t, opsA, opsB)
	}
}

func TestRandom_ProposalsAreLegal(t *testing.T) {
	epochs := buildEpochs(t, multiEpochTrace())
	s := NewRandom(7)

	for i := 0; i < 200; i++ {
		var res model.PermuteResult
		ops, ok := s.ProposeState(epochs, &res)
		require.True(t, ok)

		// The proposal must be some number of complete epochs followed
		// by a subset of the next one.
		remaining := ops
		epochIdx := 0
		for epochIdx < len(epochs) && len(remaining) >= len(epochs[epochIdx].Ops) {
			matches := true
			for j, op := range epochs[epochIdx].Ops {
				if remaining[j].AbsIndex != op.AbsIndex {
					matches = false
					break
				}
			}
			if !matches {
				break
			}
			remaining = remaining[len(epochs[epochIdx].Ops):]
			epochIdx++
		}

		require.Less(t, epochIdx, len(epochs)+1)
		if len(remaining) > 0 {
			require.Less(t, epochIdx, len(epochs), "tail ops must come from a valid crash epoch")
			// Tail ops all belong to the crash epoch.
			valid := map[uint64]bool{}
			for _, op := range epochs[epochIdx].Ops {
				valid[op.AbsIndex] = true
			}
			for _, op := range remaining {
				assert.True(t, valid[op.AbsIndex])
			}
		}
	}
}

func TestRandom_OverlappingEpochKeepsOrder(t *testing.T) {
	// All three writes hit overlapping sectors, so the epoch's recorded order
	// must be preserved in every proposal.
	trace := []model.BlockWrite{
		tracedWrite(0, 8, model.FlagWrite),
		tracedWrite(0, 8, model.FlagWrite),
		tracedWrite(4, 8, model.FlagWrite),
	}
	epochs := buildEpochs(t, trace)
	require.Len(t, epochs, 1)
	require.True(t, epochs[0].Overlaps)

	s := NewRandom(3)
	for i := 0; i < 100; i++ {
		var res model.PermuteResult
		ops, ok := s.ProposeState(epochs, &res)
		require.True(t, ok)
		for j := 1; j < len(ops); j++ {
			assert.Greater(t, ops[j].AbsIndex, ops[j-1].AbsIndex)
		}
	}
}

func TestRandom_SectorProposalsCoalesced(t *testing.T) {
	trace := []model.BlockWrite{
		tracedWrite(0, 2048, model.FlagWrite),
		tracedWrite(0, 2048, model.FlagWrite),
	}
	epochs := buildEpochs(t, trace)

	s := NewRandom(11)
	for i := 0; i < 100; i++ {
		var res model.PermuteResult
		writes, ok := s.ProposeSectorState(epochs, 512, &res)
		require.True(t, ok)

		seen := map[uint64]bool{}
		for _, w := range writes {
			assert.False(t, w.IsWholeOp)
			assert.False(t, seen[w.DiskOffset], "coalesced state must have one write per offset")
			seen[w.DiskOffset] = true
		}
	}
}

func TestRandom_SetsLastCheckpoint(t *testing.T) {
	trace := []model.BlockWrite{
		tracedWrite(0, 512, model.FlagWrite),
		tracedWrite(100, 0, model.FlagFlush),
		tracedWrite(0, 0, model.FlagCheckpoint),
		tracedWrite(8, 512, model.FlagWrite),
	}
	epochs := buildEpochs(t, trace)
	require.Len(t, epochs, 2)

	s := NewRandom(5)
	seenIDs := map[int]bool{}
	for i := 0; i < 50; i++ {
		var res model.PermuteResult
		_, ok := s.ProposeState(epochs, &res)
		require.True(t, ok)
		seenIDs[res.LastCheckpoint] = true
	}
	// Both crash epochs get picked eventually: before and after the
	// checkpoint.
	assert.True(t, seenIDs[-1])
	assert.True(t, seenIDs[0])
}
