package model

// DiskWriteData is the replayable form of a crash-state entry. Its field
// layout is the contract between the permuter and the replay engine: the
// replay engine writes Size bytes taken from Data at DataOffset to the
// absolute byte position DiskOffset.
type DiskWriteData struct {
	// IsWholeOp distinguishes whole-op entries from sector entries
	IsWholeOp bool
	// BioIndex is the absolute index of the originating trace record
	BioIndex uint64
	// BioSectorIndex is the sector's index within its parent op; zero
	// for whole-op entries
	BioSectorIndex uint64
	// DiskOffset is the absolute byte offset on disk
	DiskOffset uint64
	// Size is the number of payload bytes to replay
	Size uint64
	// Data is the shared payload buffer of the originating op
	Data []byte
	// DataOffset is where this entry's bytes start within Data
	DataOffset uint64
}

// Payload returns the bytes this entry replays
func (d *DiskWriteData) Payload() []byte {
	if d.Size == 0 {
		return nil
	}
	return d.Data[d.DataOffset : d.DataOffset+d.Size]
}

// ToWriteData converts a whole op into its replayable form
func (op *EpochOp) ToWriteData() DiskWriteData {
	return DiskWriteData{
		IsWholeOp:  true,
		BioIndex:   op.AbsIndex,
		DiskOffset: KernelSectorSize * op.Write.WriteSector,
		Size:       op.Write.Size,
		Data:       op.Write.Data,
	}
}

// ToWriteData converts a sector slice into its replayable form
func (s *EpochOpSector) ToWriteData() DiskWriteData {
	return DiskWriteData{
		IsWholeOp:      false,
		BioIndex:       s.Parent.AbsIndex,
		BioSectorIndex: s.ParentSectorIndex,
		DiskOffset:     s.DiskOffset,
		Size:           s.Size,
		Data:           s.Parent.Write.Data,
		DataOffset:     s.MaxSectorSize * s.ParentSectorIndex,
	}
}
