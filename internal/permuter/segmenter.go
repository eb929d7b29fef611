package permuter

import (
	"github.com/harshanavkis/crashmonkey/internal/model"
	"go.uber.org/zap"
)

// softEpochMaxDelayNs is the maximum time between two bio submissions
// before the current soft epoch is ended and a new one started. 2.5 seconds.
const softEpochMaxDelayNs = 2_500_000_000

// CanSplitBarrier reports whether a barrier-with-data op can be divided
// into a flush half and a data half. A plain flush only promises the
// durability of previously submitted data, so the op's own payload becomes
// legal at the start of the next epoch. FUA persists the op's own data with
// it, so FUA barriers must not be split.
func CanSplitBarrier(op model.BlockWrite) bool {
	return (op.HasFlushFlag() || op.HasFlushSeqFlag()) &&
		op.HasWriteFlag() && !op.HasFUAFlag() && op.Size > 0
}

// SplitBarrier divides a splittable barrier into a zero-size op keeping the
// original flags and a data op with the flush flags cleared. Both halves
// share the original payload buffer; the flush half just doesn't reference
// it. Panics when the op fails the CanSplitBarrier predicate.
func SplitBarrier(op model.BlockWrite) (flush, data model.BlockWrite) {
	if !CanSplitBarrier(op) {
		panic("permuter: split requested for an unsplittable barrier")
	}

	flush = op
	flush.Size = 0
	flush.Data = nil

	data = op
	data.Flags &^= model.FlagFlush | model.FlagFlushSeq
	return flush, data
}

// InitDataVector segments the trace into epochs using barrier flags alone.
// Nothing is assumed persisted until a flush or FUA is seen, which makes
// the resulting crash states pessimistic: the disk may cache everything,
// regardless of age, until a barrier arrives.
func (p *Permuter) InitDataVector(sectorSize uint64, trace []model.BlockWrite) {
	p.sectorSize = sectorSize
	p.epochs = nil

	tracker := NewOverlapTracker()
	var current *model.Epoch
	// First checkpoint seen gets id 0.
	currCheckpointEpoch := -1
	// Position of the record in the profile dump, 0 indexed.
	absIndex := uint64(0)

	i := 0
	for i < len(trace) {
		if current == nil {
			current = p.addEpoch()
			// Overlaps are only searched for within one epoch.
			tracker.Reset()
			current.CheckpointEpoch = currCheckpointEpoch
		}

		// Accumulate non-barrier ops into the current epoch.
		for i < len(trace) && !trace[i].IsBarrier() {
			op := trace[i]
			if op.IsCheckpoint() {
				// Checkpoints mark the trace but never reach the
				// reorder strategies; they retroactively tag the
				// epoch they land in.
				currCheckpointEpoch++
				current.CheckpointEpoch = currCheckpointEpoch
				i++
				absIndex++
				continue
			}

			if tracker.Insert(op) {
				current.Overlaps = true
			}
			current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: op})
			if op.IsMeta() {
				current.NumMeta++
			}
			absIndex++
			i++
		}

		if i == len(trace) {
			break
		}

		barrier := trace[i]
		if !barrier.IsBarrier() {
			panic("permuter: expected a barrier operation")
		}

		if CanSplitBarrier(barrier) {
			flushHalf, dataHalf := SplitBarrier(barrier)

			// The flush half closes the current epoch.
			current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: flushHalf})
			if flushHalf.IsMeta() {
				current.NumMeta++
			}
			current.HasBarrier = true

			// The data half opens the next epoch and stays current, so
			// following non-barrier writes join it.
			current = p.addEpoch()
			current.CheckpointEpoch = currCheckpointEpoch
			tracker.Reset()
			tracker.Insert(dataHalf)
			current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: dataHalf})
			if dataHalf.IsMeta() {
				current.NumMeta++
			}
			absIndex++
			i++
		} else {
			current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: barrier})
			if barrier.IsMeta() {
				current.NumMeta++
			}
			current.HasBarrier = true
			absIndex++
			i++

			// The next non-checkpoint op opens a fresh epoch.
			current = nil
		}
	}

	p.logInit("flag", trace)
}

// InitDataVectorSoft segments like InitDataVector but additionally starts a
// new epoch before any non-barrier write submitted 2.5 s or more after the
// previous one. Operations separated by such a gap are considered persisted
// even without an intervening barrier.
//
// A checkpoint between two writes attaches to the upcoming epoch only while
// that epoch is still empty, so a gap-triggered switch after the checkpoint
// places the checkpoint before the later write's epoch rather than inside
// the earlier one.
func (p *Permuter) InitDataVectorSoft(sectorSize uint64, trace []model.BlockWrite) {
	p.sectorSize = sectorSize
	p.epochs = nil

	tracker := NewOverlapTracker()
	current := p.addEpoch()
	currCheckpointEpoch := -1
	current.CheckpointEpoch = currCheckpointEpoch

	// Zero means "no previous write"; reset after every barrier so times
	// are never compared across barriers.
	lastTimeNs := uint64(0)

	absIndex := uint64(0)
	for i := 0; i < len(trace); i, absIndex = i+1, absIndex+1 {
		op := trace[i]
		switch {
		case op.IsCheckpoint():
			currCheckpointEpoch++
			if len(current.Ops) == 0 {
				current.CheckpointEpoch = currCheckpointEpoch
			}

		case !op.IsBarrier():
			if lastTimeNs > 0 && op.TimeNs >= lastTimeNs+softEpochMaxDelayNs {
				current = p.addEpoch()
				tracker.Reset()
				current.CheckpointEpoch = currCheckpointEpoch
			}

			current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: op})
			if op.IsMeta() {
				current.NumMeta++
			}
			lastTimeNs = op.TimeNs
			if tracker.Insert(op) {
				current.Overlaps = true
			}

		default:
			if CanSplitBarrier(op) {
				flushHalf, dataHalf := SplitBarrier(op)

				current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: flushHalf})
				if flushHalf.IsMeta() {
					current.NumMeta++
				}
				current.HasBarrier = true

				current = p.addEpoch()
				tracker.Reset()
				current.CheckpointEpoch = currCheckpointEpoch
				tracker.Insert(dataHalf)
				current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: dataHalf})
				if dataHalf.IsMeta() {
					current.NumMeta++
				}
			} else {
				current.Ops = append(current.Ops, model.EpochOp{AbsIndex: absIndex, Write: op})
				if op.IsMeta() {
					current.NumMeta++
				}
				current.HasBarrier = true

				current = p.addEpoch()
				tracker.Reset()
				current.CheckpointEpoch = currCheckpointEpoch
			}

			lastTimeNs = 0
		}
	}

	// Eagerly switching epochs can leave an empty final epoch carrying no
	// new checkpoint; drop it.
	if n := len(p.epochs); n > 1 &&
		p.epochs[n-1].CheckpointEpoch == p.epochs[n-2].CheckpointEpoch &&
		len(p.epochs[n-1].Ops) == 0 {
		p.epochs = p.epochs[:n-1]
	}

	p.logInit("soft", trace)
}

// logInit reports what segmentation produced
func (p *Permuter) logInit(mode string, trace []model.BlockWrite) {
	ops := 0
	overlapping := 0
	for _, e := range p.epochs {
		ops += len(e.Ops)
		if e.Overlaps {
			overlapping++
		}
	}
	p.logger.Debug("trace segmented",
		zap.String("mode", mode),
		zap.Int("records", len(trace)),
		zap.Int("epochs", len(p.epochs)),
		zap.Int("epoch_ops", ops),
		zap.Int("overlapping_epochs", overlapping),
		zap.Uint64("sector_size", p.sectorSize))
}
