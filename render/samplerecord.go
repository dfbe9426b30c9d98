package render

import (
	"encoding/binary"
	"io"
	"math"
)

// SampleRecord tracks one variance tile's running luminance statistics
// across passes. The on-disk layout is fixed at 8 uint32 fields followed by
// 3 float32 fields so checkpoint files are byte-for-byte comparable across
// runs at the same spp.
type SampleRecord struct {
	TileX, TileY     uint32
	SampleCount      uint32
	NextSampleCount  uint32
	CarryoverNumer   uint32 // pixelPdf fractional-carryover numerator, fixed-point over 1<<16
	Pass             uint32 // next sample index to hand any pixel in this tile, advanced once per render pass
	reserved0        uint32
	reserved1        uint32

	Mean     float32 // Welford running mean of luminance
	M2       float32 // Welford running sum of squared deviations
	Weight   float32 // adaptive sampling weight after dilation
}

// Variance returns the unbiased sample variance, 0 if fewer than 2 samples
// have been accumulated.
func (r *SampleRecord) Variance() float32 {
	if r.SampleCount < 2 {
		return 0
	}
	return r.M2 / float32(r.SampleCount-1)
}

// Accumulate folds one sample's luminance into the running Welford
// mean/variance estimate. The first call (SampleCount 0 before it) sets
// Mean to that sample's luminance and leaves M2 at zero.
func (r *SampleRecord) Accumulate(luminance float32) {
	r.SampleCount++
	delta := luminance - r.Mean
	r.Mean += delta / float32(r.SampleCount)
	delta2 := luminance - r.Mean
	r.M2 += delta * delta2
}

// Error computes the normalized adaptive-sampling error metric for this
// tile: variance / (spp * max(mean^2, 1e-3)).
func (r *SampleRecord) Error() float32 {
	if r.SampleCount == 0 {
		return 0
	}
	denom := r.Mean * r.Mean
	if denom < 1e-3 {
		denom = 1e-3
	}
	return r.Variance() / (float32(r.SampleCount) * denom)
}

// SaveState writes the record in fixed field order: the 8 uint32 fields,
// then the 3 float32 fields, little-endian, no padding.
func (r *SampleRecord) SaveState(w io.Writer) error {
	var buf [44]byte
	binary.LittleEndian.PutUint32(buf[0:4], r.TileX)
	binary.LittleEndian.PutUint32(buf[4:8], r.TileY)
	binary.LittleEndian.PutUint32(buf[8:12], r.SampleCount)
	binary.LittleEndian.PutUint32(buf[12:16], r.NextSampleCount)
	binary.LittleEndian.PutUint32(buf[16:20], r.CarryoverNumer)
	binary.LittleEndian.PutUint32(buf[20:24], r.Pass)
	binary.LittleEndian.PutUint32(buf[24:28], r.reserved0)
	binary.LittleEndian.PutUint32(buf[28:32], r.reserved1)
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(r.Mean))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(r.M2))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(r.Weight))
	_, err := w.Write(buf[:])
	return err
}

// LoadState reads a record written by SaveState.
func (r *SampleRecord) LoadState(rd io.Reader) error {
	var buf [44]byte
	if _, err := io.ReadFull(rd, buf[:]); err != nil {
		return err
	}
	r.TileX = binary.LittleEndian.Uint32(buf[0:4])
	r.TileY = binary.LittleEndian.Uint32(buf[4:8])
	r.SampleCount = binary.LittleEndian.Uint32(buf[8:12])
	r.NextSampleCount = binary.LittleEndian.Uint32(buf[12:16])
	r.CarryoverNumer = binary.LittleEndian.Uint32(buf[16:20])
	r.Pass = binary.LittleEndian.Uint32(buf[20:24])
	r.reserved0 = binary.LittleEndian.Uint32(buf[24:28])
	r.reserved1 = binary.LittleEndian.Uint32(buf[28:32])
	r.Mean = math.Float32frombits(binary.LittleEndian.Uint32(buf[32:36]))
	r.M2 = math.Float32frombits(binary.LittleEndian.Uint32(buf[36:40]))
	r.Weight = math.Float32frombits(binary.LittleEndian.Uint32(buf[40:44]))
	return nil
}
