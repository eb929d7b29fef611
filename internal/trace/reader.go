package trace

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/harshanavkis/crashmonkey/internal/errors"
	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/harshanavkis/crashmonkey/internal/util"
	"github.com/harshanavkis/crashmonkey/internal/validation"
	"go.uber.org/zap"
)

// maxRecordSize bounds a single encoded profile record. Payloads are block
// sized, so anything past a few megabytes is a corrupt dump.
const maxRecordSize = 16 * 1024 * 1024

// Record is the on-disk form of one recorded block I/O operation: one JSON
// object per line, payload base64 encoded, CRC32 checksum over the raw
// payload bytes.
type Record struct {
	WriteSector uint64 `json:"write_sector"`
	Size        uint64 `json:"size"`
	TimeNs      uint64 `json:"time_ns"`
	Flags       uint32 `json:"flags"`
	Data        []byte `json:"data,omitempty"`
	Checksum    uint32 `json:"checksum,omitempty"`
}

// Reader loads recorded workload profiles
type Reader struct {
	validator *validation.Validator
	logger    *zap.Logger
}

// NewReader creates a profile reader
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		validator: validation.NewValidator(),
		logger:    logger,
	}
}

// ReadProfile reads a workload profile dump and returns the trace in
// recorded order
func (r *Reader) ReadProfile(path string) ([]model.BlockWrite, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ProfileIO("failed to open workload profile", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	var writes []model.BlockWrite
	index := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		w, err := r.decodeRecord(index, line)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
		index++
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.ProfileIO("failed to read workload profile", err)
	}

	r.logger.Info("Workload profile loaded",
		zap.String("path", path),
		zap.Int("records", index))

	return writes, nil
}

// decodeRecord decodes and validates a single profile line
func (r *Reader) decodeRecord(index int, line []byte) (model.BlockWrite, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return model.BlockWrite{}, errors.MalformedProfile("failed to unmarshal trace record", err).
			WithDetail("index", index)
	}

	if len(rec.Data) > 0 || rec.Checksum != 0 {
		if !util.ValidateChecksum(rec.Data, rec.Checksum) {
			return model.BlockWrite{}, errors.ChecksumFailed(index, rec.Checksum, util.ComputeChecksum(rec.Data))
		}
	}

	w := model.BlockWrite{
		WriteSector: rec.WriteSector,
		Size:        rec.Size,
		TimeNs:      rec.TimeNs,
		Flags:       model.Flags(rec.Flags),
		Data:        rec.Data,
	}

	if err := r.validator.ValidateRecord(index, w); err != nil {
		return model.BlockWrite{}, err
	}

	return w, nil
}

// EncodeRecord converts a BlockWrite back to its on-disk form. Used by
// tests and tools that produce synthetic profiles.
func EncodeRecord(w model.BlockWrite) Record {
	return Record{
		WriteSector: w.WriteSector,
		Size:        w.Size,
		TimeNs:      w.TimeNs,
		Flags:       uint32(w.Flags),
		Data:        w.Data,
		Checksum:    util.ComputeChecksum(w.Data),
	}
}
