package render

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// checkpointMagic tags the stream so a corrupt or foreign file is rejected
// before any record is parsed.
const checkpointMagic = 0xE3B3E000

// TileSamplerState is the persisted state of one tile's sample generator,
// written/read via the Sampler-specific SaveState/LoadState methods. The
// driver supplies the save/load closures since the concrete sampler variant
// (uniform vs low-discrepancy) is chosen at render-config time, not known to
// this package.
type TileSamplerState struct {
	SaveState func(w io.Writer) error
	LoadState func(r io.Reader) error
}

// CheckpointHeader is written first, so a resume attempt against a
// checkpoint from a different render invocation is refused outright.
type CheckpointHeader struct {
	SessionID    uuid.UUID
	RecordCount  uint32
}

// SaveCheckpoint writes the header, then every variance-tile SampleRecord in
// order, then every tile's sampler state in the same order — the fixed write
// order spec'd so a partial resume is byte-for-byte identical to an
// uninterrupted run at the same spp.
func SaveCheckpoint(w io.Writer, sessionID uuid.UUID, records []*SampleRecord, tileSamplers []TileSamplerState) error {
	var hdr [4 + 16 + 4]byte
	binary.LittleEndian.PutUint32(hdr[0:4], checkpointMagic)
	sidBytes, err := sessionID.MarshalBinary()
	if err != nil {
		return err
	}
	copy(hdr[4:20], sidBytes)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(len(records)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	for _, r := range records {
		if err := r.SaveState(w); err != nil {
			return err
		}
	}
	for _, t := range tileSamplers {
		if err := t.SaveState(w); err != nil {
			return err
		}
	}
	return nil
}

// PeekCheckpointSessionID reads just the header's session id from r without
// consuming the rest of the stream, letting a resuming caller adopt the
// checkpoint's session before constructing the driver that will open a
// second reader over the same file for the real LoadCheckpoint call.
func PeekCheckpointSessionID(r io.Reader) (uuid.UUID, error) {
	var hdr [4 + 16 + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return uuid.UUID{}, err
	}
	if magic := binary.LittleEndian.Uint32(hdr[0:4]); magic != checkpointMagic {
		return uuid.UUID{}, fmt.Errorf("bad checkpoint magic %x", magic)
	}
	var sid uuid.UUID
	if err := sid.UnmarshalBinary(hdr[4:20]); err != nil {
		return uuid.UUID{}, err
	}
	return sid, nil
}

// LoadCheckpoint reads and validates the header against expectedSession and
// the caller's known record count, then restores every record and tile
// sampler in the same fixed order SaveCheckpoint wrote them. A session id or
// record-count mismatch is reported as CheckpointMismatch and the resume is
// refused; the caller must not partially apply state from a returned error.
func LoadCheckpoint(r io.Reader, expectedSession uuid.UUID, records []*SampleRecord, tileSamplers []TileSamplerState) error {
	var hdr [4 + 16 + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return newRenderError(CheckpointMismatch, err)
	}
	magic := binary.LittleEndian.Uint32(hdr[0:4])
	if magic != checkpointMagic {
		return newRenderError(CheckpointMismatch, fmt.Errorf("bad magic %x", magic))
	}
	var sid uuid.UUID
	if err := sid.UnmarshalBinary(hdr[4:20]); err != nil {
		return newRenderError(CheckpointMismatch, err)
	}
	if sid != expectedSession {
		return newRenderError(CheckpointMismatch, fmt.Errorf("session id %s does not match current render %s", sid, expectedSession))
	}
	recordCount := binary.LittleEndian.Uint32(hdr[20:24])
	if int(recordCount) != len(records) {
		return newRenderError(CheckpointMismatch, fmt.Errorf("record count %d does not match current render %d", recordCount, len(records)))
	}

	for _, rec := range records {
		if err := rec.LoadState(r); err != nil {
			return newRenderError(CheckpointMismatch, err)
		}
	}
	for _, t := range tileSamplers {
		if err := t.LoadState(r); err != nil {
			return newRenderError(CheckpointMismatch, err)
		}
	}
	return nil
}
