// Package photon implements the photon-mapping pipeline's data structures:
// surface, volume, and path photon records, the shared write-range cursor
// workers shoot into, the k-d tree (kdtree.go) and the bottom-up
// volume-hierarchy build (volumehierarchy.go) over them.
package photon

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// These flag, split-dimension and child-index constants partition the packed k-d metadata word: two
// child-present flags, a 2-bit split dimension, and a 28-bit child index.
const (
	flagLeftPresent  uint32 = 1 << 31
	flagRightPresent uint32 = 1 << 30
	splitDimShift           = 28
	splitDimMask     uint32 = 0x3
	childIndexMask   uint32 = (1 << 28) - 1
)

func packKD(hasLeft, hasRight bool, splitDim int, childIndex uint32) uint32 {
	var v uint32
	if hasLeft {
		v |= flagLeftPresent
	}
	if hasRight {
		v |= flagRightPresent
	}
	v |= (uint32(splitDim) & splitDimMask) << splitDimShift
	v |= childIndex & childIndexMask
	return v
}

func unpackHasLeft(v uint32) bool   { return v&flagLeftPresent != 0 }
func unpackHasRight(v uint32) bool  { return v&flagRightPresent != 0 }
func unpackSplitDim(v uint32) int   { return int((v >> splitDimShift) & splitDimMask) }
func unpackChildIdx(v uint32) uint32 { return v & childIndexMask }

// isLeaf reports whether a packed k-d word has no children — the invariant
// required of every k-d tree leaf.
func isLeaf(v uint32) bool { return !unpackHasLeft(v) && !unpackHasRight(v) }

// Photon is a surface photon record.
type Photon struct {
	Position    mgl32.Vec3
	Incident    mgl32.Vec3
	Power       mgl32.Vec3
	BounceIndex uint16
	kd          uint32
}

// VolumePhoton extends Photon with the bounding box and squared gather
// radius needed by the volume-radius hierarchy.
type VolumePhoton struct {
	Photon
	BoundMin, BoundMax mgl32.Vec3
	RadiusSq           float32
}

// packedBounceSurface packs a path photon's bounce number (low bits) and a
// surface-hit flag (top bit) into one word.
func packedBounceSurface(bounce int, onSurface bool) uint32 {
	v := uint32(bounce) & 0x7fffffff
	if onSurface {
		v |= 0x80000000
	}
	return v
}

// PathPhoton records one light-path segment for beam/photon-plane
// reconstruction: its start position and direction, the segment's sampled
// (pre-intersection) and actual (post-intersection) lengths, and power.
type PathPhoton struct {
	Position             mgl32.Vec3
	Direction            mgl32.Vec3
	Power                mgl32.Vec3
	SampledSegmentLength float32
	ActualSegmentLength  float32
	bounceAndSurface     uint32
}

func NewPathPhoton(pos, dir, power mgl32.Vec3, sampledLen, actualLen float32, bounce int, onSurface bool) PathPhoton {
	return PathPhoton{
		Position: pos, Direction: dir, Power: power,
		SampledSegmentLength: sampledLen, ActualSegmentLength: actualLen,
		bounceAndSurface: packedBounceSurface(bounce, onSurface),
	}
}

func (p PathPhoton) BounceIndex() int   { return int(p.bounceAndSurface & 0x7fffffff) }
func (p PathPhoton) OnSurface() bool    { return p.bounceAndSurface&0x80000000 != 0 }

// EndPosition returns the segment's far endpoint, used to build beams and
// photon-planes between adjacent path photons.
func (p PathPhoton) EndPosition() mgl32.Vec3 {
	return p.Position.Add(p.Direction.Mul(p.ActualSegmentLength))
}

// Range is a worker's disjoint write cursor into a shared photon array:
// [Start, Next) holds committed photons, [Next, End) is this worker's
// remaining budget. Reserve advances Next with a plain increment; the
// fields are plain ints because each Range is owned by exactly one worker
// during the shoot phase.
type Range struct {
	Start int64
	Next  int64
	End   int64
}

// NewRanges partitions [0, total) into numWorkers disjoint, contiguous
// ranges.
func NewRanges(total, numWorkers int) []Range {
	ranges := make([]Range, numWorkers)
	base := total / numWorkers
	rem := total % numWorkers
	cursor := int64(0)
	for i := 0; i < numWorkers; i++ {
		size := int64(base)
		if i < rem {
			size++
		}
		ranges[i] = Range{Start: cursor, Next: cursor, End: cursor + size}
		cursor += size
	}
	return ranges
}

// Reserve claims the next slot in the range, returning its index and false
// if the range is exhausted.
func (r *Range) Reserve() (int64, bool) {
	if r.Next >= r.End {
		return 0, false
	}
	idx := r.Next
	r.Next++
	return idx, true
}

// Stored reports how many photons this range actually wrote (paths may
// terminate before filling their budget).
func (r *Range) Stored() int64 { return r.Next - r.Start }

// atomicPathCounter counts emitter paths started across all workers during
// the shoot phase, independent of how many photons each path produced.
// The photon-map integrator does not use it: it sums per-worker path
// counts after the shoot phase and divides photon power by that sum.
type atomicPathCounter struct{ n atomic.Int64 }

func (c *atomicPathCounter) Increment() { c.n.Add(1) }
func (c *atomicPathCounter) Total() int64 { return c.n.Load() }
