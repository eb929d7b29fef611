package strategy

import (
	"testing"

	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/harshanavkis/crashmonkey/internal/permuter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInOrder_EnumeratesPrefixes(t *testing.T) {
	epochs := buildEpochs(t, []model.BlockWrite{
		tracedWrite(0, 4, model.FlagWrite),
		tracedWrite(8, 4, model.FlagWrite),
		tracedWrite(16, 4, model.FlagWrite),
	})

	s := NewInOrder()
	var res model.PermuteResult
	for want := 0; want <= 3; want++ {
		ops, ok := s.ProposeState(epochs, &res)
		require.True(t, ok)
		require.Len(t, ops, want)
		for j, op := range ops {
			assert.Equal(t, uint64(j), op.AbsIndex)
		}
	}

	// Exhausted: keeps returning the full sequence with ok=false.
	ops, ok := s.ProposeState(epochs, &res)
	assert.False(t, ok)
	assert.Len(t, ops, 3)
}

func TestInOrder_SectorPrefixesCoalesced(t *testing.T) {
	epochs := buildEpochs(t, []model.BlockWrite{
		tracedWrite(0, 1024, model.FlagWrite),
	})

	s := NewInOrder()
	var res model.PermuteResult
	lengths := []int{0, 1, 2}
	for _, want := range lengths {
		writes, ok := s.ProposeSectorState(epochs, 512, &res)
		require.True(t, ok)
		assert.Len(t, writes, want)
	}

	_, ok := s.ProposeSectorState(epochs, 512, &res)
	assert.False(t, ok)
}

func TestInOrder_TracksCheckpoint(t *testing.T) {
	epochs := buildEpochs(t, []model.BlockWrite{
		tracedWrite(0, 4, model.FlagWrite),
		tracedWrite(100, 0, model.FlagFlush),
		tracedWrite(0, 0, model.FlagCheckpoint),
		tracedWrite(8, 4, model.FlagWrite),
	})
	require.Len(t, epochs, 2)

	s := NewInOrder()
	var ids []int
	for {
		var res model.PermuteResult
		_, ok := s.ProposeState(epochs, &res)
		ids = append(ids, res.LastCheckpoint)
		if !ok {
			break
		}
	}

	// Prefixes: empty, [0], [0,1], [0,1,3], then exhausted. The last two
	// prefixes end in the post-checkpoint epoch.
	assert.Equal(t, []int{-1, -1, -1, 0, 0}, ids)
}

func TestInOrder_DrivenByPermuter(t *testing.T) {
	trace := []model.BlockWrite{
		tracedWrite(0, 4, model.FlagWrite),
		tracedWrite(8, 4, model.FlagWrite),
		tracedWrite(16, 4, model.FlagWrite),
	}

	p := permuter.NewPermuter(NewInOrder(), nil)
	p.InitDataVector(512, trace)

	// Four distinct prefixes, then the exhaustion signal.
	var res model.PermuteResult
	for i := 0; i <= 3; i++ {
		ok, crashState := p.GenerateCrashState(&res)
		require.True(t, ok)
		assert.Len(t, crashState, i)
	}

	ok, _ := p.GenerateCrashState(&res)
	assert.False(t, ok)
	assert.Equal(t, 4, p.CompletedStates())
}
