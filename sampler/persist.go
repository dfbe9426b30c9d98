package sampler

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Version tags prefix every persisted sampler so a resumed checkpoint can
// detect a mismatched sampler variant before reading the rest of the stream.
const (
	versionUniform        = 1
	versionLowDiscrepancy = 2
)

// SaveState writes the sampler's base seed and PRNG state.
func (s *UniformSampler) SaveState(w io.Writer) error {
	return writeTagged(w, versionUniform, s.baseSeed, s.rng.state)
}

// LoadState restores a UniformSampler previously written by SaveState.
func (s *UniformSampler) LoadState(r io.Reader) error {
	baseSeed, state, err := readTagged(r, versionUniform)
	if err != nil {
		return err
	}
	s.baseSeed = baseSeed
	s.rng.state = state
	return nil
}

// SaveState writes the low-discrepancy sampler's base seed, current sample
// index and dimension cursor, plus its fallback uniform sub-sampler's state.
func (s *LowDiscrepancySampler) SaveState(w io.Writer) error {
	var buf [1 + 4 + 4 + 4]byte
	buf[0] = versionLowDiscrepancy
	binary.LittleEndian.PutUint32(buf[1:5], s.baseSeed)
	binary.LittleEndian.PutUint32(buf[5:9], s.sampleIndex)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(s.dimension))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	return s.fallback.SaveState(w)
}

// LoadState restores a LowDiscrepancySampler previously written by SaveState.
func (s *LowDiscrepancySampler) LoadState(r io.Reader) error {
	var buf [1 + 4 + 4 + 4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	if buf[0] != versionLowDiscrepancy {
		return fmt.Errorf("sampler: version tag mismatch, got %d want %d", buf[0], versionLowDiscrepancy)
	}
	s.baseSeed = binary.LittleEndian.Uint32(buf[1:5])
	s.sampleIndex = binary.LittleEndian.Uint32(buf[5:9])
	s.dimension = int(binary.LittleEndian.Uint32(buf[9:13]))
	return s.fallback.LoadState(r)
}

func writeTagged(w io.Writer, tag byte, a uint32, b uint64) error {
	var buf [1 + 4 + 8]byte
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[1:5], a)
	binary.LittleEndian.PutUint64(buf[5:13], b)
	_, err := w.Write(buf[:])
	return err
}

func readTagged(r io.Reader, wantTag byte) (uint32, uint64, error) {
	var buf [1 + 4 + 8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, err
	}
	if buf[0] != wantTag {
		return 0, 0, fmt.Errorf("sampler: version tag mismatch, got %d want %d", buf[0], wantTag)
	}
	a := binary.LittleEndian.Uint32(buf[1:5])
	b := binary.LittleEndian.Uint64(buf[5:13])
	return a, b, nil
}
