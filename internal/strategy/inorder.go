package strategy

import (
	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/harshanavkis/crashmonkey/internal/permuter"
)

// InOrder enumerates crash states that keep the recorded submission order:
// every prefix of the trace, shortest first, at whole-op or sector
// granularity. It is the deterministic baseline — the states a disk with no
// reordering freedom could produce — and reports exhaustion once every
// prefix has been proposed.
type InOrder struct {
	nextLen       int
	nextSectorLen int
}

var _ permuter.Strategy = (*InOrder)(nil)

// NewInOrder creates an in-order prefix strategy
func NewInOrder() *InOrder {
	return &InOrder{}
}

// ProposeState returns the next unproposed prefix of the op sequence
func (s *InOrder) ProposeState(epochs []*model.Epoch, res *model.PermuteResult) ([]model.EpochOp, bool) {
	var all []model.EpochOp
	var owner []int
	for i, e := range epochs {
		all = append(all, e.Ops...)
		for range e.Ops {
			owner = append(owner, i)
		}
	}

	n := s.nextLen
	exhausted := n > len(all)
	if exhausted {
		n = len(all)
	} else {
		s.nextLen++
	}

	out := make([]model.EpochOp, n)
	copy(out, all[:n])
	res.LastCheckpoint = prefixCheckpoint(epochs, owner, n)
	return out, !exhausted
}

// ProposeSectorState returns the next unproposed prefix of the sector
// sequence, coalesced to its last writer at each offset
func (s *InOrder) ProposeSectorState(epochs []*model.Epoch, sectorSize uint64, res *model.PermuteResult) ([]model.DiskWriteData, bool) {
	var all []model.EpochOpSector
	var owner []int
	for i, e := range epochs {
		for j := range e.Ops {
			secs := e.Ops[j].ToSectors(sectorSize)
			all = append(all, secs...)
			for range secs {
				owner = append(owner, i)
			}
		}
	}

	n := s.nextSectorLen
	exhausted := n > len(all)
	if exhausted {
		n = len(all)
	} else {
		s.nextSectorLen++
	}

	out := make([]model.DiskWriteData, 0, n)
	for _, sec := range permuter.CoalesceSectors(all[:n]) {
		out = append(out, sec.ToWriteData())
	}
	res.LastCheckpoint = prefixCheckpoint(epochs, owner, n)
	return out, !exhausted
}

// prefixCheckpoint returns the checkpoint id in effect after replaying the
// first n elements: the id of the epoch the prefix ends in, or the first
// epoch's id for an empty prefix
func prefixCheckpoint(epochs []*model.Epoch, owner []int, n int) int {
	if len(epochs) == 0 {
		return -1
	}
	if n == 0 {
		return epochs[0].CheckpointEpoch
	}
	return epochs[owner[n-1]].CheckpointEpoch
}
