package validation

import (
	"github.com/harshanavkis/crashmonkey/internal/errors"
	"github.com/harshanavkis/crashmonkey/internal/model"
)

// Validator checks recorded trace records against the ingest contract
// before they reach the permuter
type Validator struct {
	knownFlags model.Flags
}

// NewValidator creates a validator accepting the standard flag set
func NewValidator() *Validator {
	return &Validator{knownFlags: model.FlagKnownMask}
}

// ValidateRecord validates a single trace record. index is the record's
// position in the profile, used for error context only.
func (v *Validator) ValidateRecord(index int, w model.BlockWrite) error {
	if w.Flags&^v.knownFlags != 0 {
		return errors.UnknownFlags(index, uint32(w.Flags&^v.knownFlags))
	}

	// Payload length must agree with the declared size; records without a
	// captured payload carry an empty buffer.
	if len(w.Data) != 0 && uint64(len(w.Data)) != w.Size {
		return errors.InvalidRecord(index, "payload length disagrees with declared size")
	}

	// A barrier carrying data must also carry the write flag; without it
	// the payload has no operation to land with.
	if w.IsBarrier() && w.Size > 0 && !w.HasWriteFlag() {
		return errors.InvalidRecord(index, "barrier record carries data without the write flag")
	}

	// Checkpoints mark logical points in the trace; they never carry data
	// or durability semantics.
	if w.IsCheckpoint() {
		if w.Size != 0 || len(w.Data) != 0 {
			return errors.InvalidRecord(index, "checkpoint record carries a payload")
		}
		if w.IsBarrier() {
			return errors.InvalidRecord(index, "checkpoint record carries a barrier flag")
		}
	}

	return nil
}

// ValidateTrace validates every record of a profile
func (v *Validator) ValidateTrace(trace []model.BlockWrite) error {
	for i, w := range trace {
		if err := v.ValidateRecord(i, w); err != nil {
			return err
		}
	}
	return nil
}
