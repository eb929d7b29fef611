package permuter

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/harshanavkis/crashmonkey/internal/model"
)

// Crash states are memoised by a 64-bit digest of their identifying index
// sequence: the abs_index values at whole-op granularity, the interleaved
// (bio index, sector index) pairs at sector granularity.

// opSequenceDigest digests a whole-op crash state
func opSequenceDigest(ops []model.EpochOp) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for i := range ops {
		binary.LittleEndian.PutUint64(buf[:], ops[i].AbsIndex)
		d.Write(buf[:])
	}
	return d.Sum64()
}

// sectorSequenceDigest digests a sector crash state. Both the sector index
// and the owning bio index are needed for uniqueness.
func sectorSequenceDigest(writes []model.DiskWriteData) uint64 {
	d := xxhash.New()
	var buf [16]byte
	for i := range writes {
		binary.LittleEndian.PutUint64(buf[0:8], writes[i].BioIndex)
		binary.LittleEndian.PutUint64(buf[8:16], writes[i].BioSectorIndex)
		d.Write(buf[:])
	}
	return d.Sum64()
}
