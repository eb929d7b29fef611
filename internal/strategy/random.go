package strategy

import (
	"math/rand"

	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/harshanavkis/crashmonkey/internal/permuter"
)

// Random proposes crash states by picking a crash epoch uniformly at
// random, replaying every earlier epoch in full, and crashing partway
// through the chosen one. Within the crash epoch, ops are shuffled freely
// only when the epoch has no overlapping writes; otherwise the recorded
// order is kept and only the crash point varies. Each instance carries its
// own RNG so runs are reproducible from the seed.
type Random struct {
	rng *rand.Rand
}

var _ permuter.Strategy = (*Random)(nil)

// NewRandom creates a random reorder strategy seeded with seed
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// ProposeState returns one random whole-op crash state
func (s *Random) ProposeState(epochs []*model.Epoch, res *model.PermuteResult) ([]model.EpochOp, bool) {
	if len(epochs) == 0 {
		return nil, false
	}

	crashEpoch := s.rng.Intn(len(epochs))

	var out []model.EpochOp
	for i := 0; i < crashEpoch; i++ {
		out = append(out, epochs[i].Ops...)
	}

	e := epochs[crashEpoch]
	res.LastCheckpoint = e.CheckpointEpoch
	if len(e.Ops) == 0 {
		return out, true
	}

	n := s.rng.Intn(len(e.Ops) + 1)
	if e.Overlaps {
		// Overlapping writes must land in recorded order, so only the
		// crash point is free.
		out = append(out, e.Ops[:n]...)
		return out, true
	}

	for _, idx := range s.rng.Perm(len(e.Ops))[:n] {
		out = append(out, e.Ops[idx])
	}
	return out, true
}

// ProposeSectorState returns one random sector-granular crash state. The
// crash epoch is decomposed into sectors, a random subset is taken in
// random order, and the subset is coalesced so only the last writer at each
// disk offset survives.
func (s *Random) ProposeSectorState(epochs []*model.Epoch, sectorSize uint64, res *model.PermuteResult) ([]model.DiskWriteData, bool) {
	if len(epochs) == 0 {
		return nil, false
	}

	crashEpoch := s.rng.Intn(len(epochs))

	var out []model.DiskWriteData
	for i := 0; i < crashEpoch; i++ {
		for j := range epochs[i].Ops {
			out = append(out, epochs[i].Ops[j].ToWriteData())
		}
	}

	e := epochs[crashEpoch]
	res.LastCheckpoint = e.CheckpointEpoch

	var sectors []model.EpochOpSector
	for j := range e.Ops {
		sectors = append(sectors, e.Ops[j].ToSectors(sectorSize)...)
	}
	if len(sectors) == 0 {
		return out, true
	}

	n := s.rng.Intn(len(sectors) + 1)
	picked := make([]model.EpochOpSector, 0, n)
	for _, idx := range s.rng.Perm(len(sectors))[:n] {
		picked = append(picked, sectors[idx])
	}

	for _, sec := range permuter.CoalesceSectors(picked) {
		out = append(out, sec.ToWriteData())
	}
	return out, true
}
