package permuter

import (
	"github.com/harshanavkis/crashmonkey/internal/model"
	"go.uber.org/zap"
)

const (
	// retryMultiplier scales the retry budget with the number of crash
	// states already found
	retryMultiplier = 2
	// minRetries is the retry budget floor
	minRetries = 1000
)

// Strategy proposes candidate crash states. Implementations carry their own
// RNG state; the dedup and retry loop lives in the Permuter so the
// memoisation logic exists in exactly one place.
type Strategy interface {
	// ProposeState returns one candidate crash state at whole-op
	// granularity. The second return value is false when the strategy
	// believes the state space is exhausted.
	ProposeState(epochs []*model.Epoch, res *model.PermuteResult) ([]model.EpochOp, bool)

	// ProposeSectorState returns one candidate crash state at sector
	// granularity, already converted to replayable form.
	ProposeSectorState(epochs []*model.Epoch, sectorSize uint64, res *model.PermuteResult) ([]model.DiskWriteData, bool)
}

// Permuter segments a recorded block I/O trace into epochs and drives a
// reorder strategy to enumerate distinct crash states. A Permuter owns its
// epoch vector and memo set; it is not safe for concurrent use, so a
// multi-worker pipeline needs one instance per worker.
type Permuter struct {
	strategy   Strategy
	logger     *zap.Logger
	sectorSize uint64
	epochs     []*model.Epoch
	completed  map[uint64]struct{}
}

// NewPermuter creates a Permuter driving the given strategy
func NewPermuter(strategy Strategy, logger *zap.Logger) *Permuter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Permuter{
		strategy:  strategy,
		logger:    logger,
		completed: make(map[uint64]struct{}),
	}
}

// Epochs returns the epoch sequence built by the last Init call. The slice
// and the epochs it points to are owned by the Permuter; callers must not
// mutate them.
func (p *Permuter) Epochs() []*model.Epoch {
	return p.epochs
}

// SectorSize returns the sector granularity set by the last Init call
func (p *Permuter) SectorSize() uint64 {
	return p.sectorSize
}

// CompletedStates returns the number of distinct crash states found so far
func (p *Permuter) CompletedStates() int {
	return len(p.completed)
}

// addEpoch appends a fresh epoch and returns it
func (p *Permuter) addEpoch() *model.Epoch {
	e := &model.Epoch{CheckpointEpoch: -1}
	p.epochs = append(p.epochs, e)
	return e
}

// maxRetries returns the retry budget for one generation loop
func (p *Permuter) maxRetries() int {
	if r := retryMultiplier * len(p.completed); r > minRetries {
		return r
	}
	return minRetries
}

// GenerateCrashState asks the strategy for candidate states at whole-op
// granularity until one hashes to a value not seen before, the strategy
// reports exhaustion, or the retry budget runs out. The chosen state is
// converted to replayable form and stored in res.CrashState. Returns true
// iff a previously unseen state was produced by a fresh proposal.
func (p *Permuter) GenerateCrashState(res *model.PermuteResult) (bool, []model.DiskWriteData) {
	var (
		crashState []model.EpochOp
		newState   bool
		digest     uint64
		exists     bool
	)

	maxRetries := p.maxRetries()
	for retries := 0; ; {
		crashState, newState = p.strategy.ProposeState(p.epochs, res)
		digest = opSequenceDigest(crashState)
		retries++
		_, exists = p.completed[digest]
		if !newState || retries >= maxRetries {
			// The strategy is likely out of new states; the retry
			// bound keeps us from spinning when it keeps proposing
			// states we have already emitted.
			break
		}
		if !exists {
			break
		}
	}

	out := make([]model.DiskWriteData, len(crashState))
	for i := range crashState {
		out[i] = crashState[i].ToWriteData()
	}
	res.CrashState = out

	if !exists {
		p.completed[digest] = struct{}{}
		return newState, out
	}

	p.logger.Debug("crash state space appears exhausted",
		zap.Int("completed_states", len(p.completed)))
	return false, out
}

// GenerateSectorCrashState is GenerateCrashState at sector granularity:
// candidates arrive already converted to replayable form and are hashed by
// their (bio index, sector index) pairs.
func (p *Permuter) GenerateSectorCrashState(res *model.PermuteResult) (bool, []model.DiskWriteData) {
	var (
		crashState []model.DiskWriteData
		newState   bool
		digest     uint64
		exists     bool
	)

	maxRetries := p.maxRetries()
	for retries := 0; ; {
		crashState, newState = p.strategy.ProposeSectorState(p.epochs, p.sectorSize, res)
		digest = sectorSequenceDigest(crashState)
		retries++
		_, exists = p.completed[digest]
		if !newState || retries >= maxRetries {
			break
		}
		if !exists {
			break
		}
	}

	res.CrashState = crashState

	if !exists {
		p.completed[digest] = struct{}{}
		return newState, crashState
	}

	p.logger.Debug("sector crash state space appears exhausted",
		zap.Int("completed_states", len(p.completed)))
	return false, crashState
}
