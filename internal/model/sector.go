package model

// EpochOpSector is a fixed-size slice of an EpochOp's payload. All sectors
// of one op share MaxSectorSize; the last sector may be smaller when the
// payload is not a multiple of the sector size.
type EpochOpSector struct {
	Parent            *EpochOp
	ParentSectorIndex uint64
	// DiskOffset is the absolute byte offset of this sector on disk
	DiskOffset uint64
	Size       uint64
	MaxSectorSize uint64
}

// ToSectors decomposes the op's payload into sector slices of at most
// sectorSize bytes each. Panics if sectorSize is zero.
func (op *EpochOp) ToSectors(sectorSize uint64) []EpochOpSector {
	if sectorSize == 0 {
		panic("model: sector decomposition requires a non-zero sector size")
	}

	numSectors := (op.Write.Size + sectorSize - 1) / sectorSize
	res := make([]EpochOpSector, numSectors)
	for i := uint64(0); i < numSectors; i++ {
		size := sectorSize
		if i == numSectors-1 {
			// Last sector may not be completely filled.
			size = op.Write.Size - i*sectorSize
		}
		res[i] = EpochOpSector{
			Parent:            op,
			ParentSectorIndex: i,
			DiskOffset:        KernelSectorSize*op.Write.WriteSector + i*sectorSize,
			Size:              size,
			MaxSectorSize:     sectorSize,
		}
	}
	return res
}

// Data returns the slice of the parent payload covered by this sector
func (s *EpochOpSector) Data() []byte {
	off := s.MaxSectorSize * s.ParentSectorIndex
	return s.Parent.Write.Data[off : off+s.Size]
}
