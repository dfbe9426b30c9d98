package photon

import "github.com/go-gl/mathgl/mgl32"

// VolumeTree is a k-d tree over volume photons augmented, bottom-up, with
// per-node gather-sphere AABBs: a node's box is the union of its own gather
// sphere and its children's boxes, giving an efficient beam-query structure
// (a range tree with per-node bounding volumes).
type VolumeTree struct {
	Photons []VolumePhoton
}

// BuildVolumeTree k-d-splits photons the same way BuildKDTree does (reusing
// the embedded Photon's packed metadata) and then runs the bottom-up
// bounding-volume pass.
func BuildVolumeTree(photons []VolumePhoton, radiusSq float32) *VolumeTree {
	flat := make([]Photon, len(photons))
	for i := range photons {
		flat[i] = photons[i].Photon
	}
	BuildKDTree(flat, nil)
	for i := range photons {
		photons[i].Photon = flat[i]
		if photons[i].RadiusSq == 0 {
			photons[i].RadiusSq = radiusSq
		}
	}
	vt := &VolumeTree{Photons: photons}
	if len(photons) > 0 {
		vt.computeBounds(0)
	}
	return vt
}

// computeBounds recurses to the leaves and unions each node's own gather
// sphere with its children's already-computed boxes, establishing the
// volume-hierarchy invariant: a node's AABB contains its gather sphere and
// both children's AABBs.
func (vt *VolumeTree) computeBounds(i int) (min, max mgl32.Vec3) {
	p := &vt.Photons[i]
	r := sqrtApprox(p.RadiusSq)
	min = p.Position.Sub(mgl32.Vec3{r, r, r})
	max = p.Position.Add(mgl32.Vec3{r, r, r})

	if unpackHasLeft(p.kd) {
		cMin, cMax := vt.computeBounds(i + 1)
		min, max = componentMin(min, cMin), componentMax(max, cMax)
	}
	if unpackHasRight(p.kd) {
		cMin, cMax := vt.computeBounds(int(unpackChildIdx(p.kd)))
		min, max = componentMin(min, cMin), componentMax(max, cMax)
	}
	p.BoundMin, p.BoundMax = min, max
	return min, max
}

func componentMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{minf(a.X(), b.X()), minf(a.Y(), b.Y()), minf(a.Z(), b.Z())}
}
func componentMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{maxf(a.X(), b.X()), maxf(a.Y(), b.Y()), maxf(a.Z(), b.Z())}
}
func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func sqrtApprox(v float32) float32 {
	if v <= 0 {
		return 0
	}
	guess := v
	for i := 0; i < 8; i++ {
		guess = 0.5 * (guess + v/guess)
	}
	return guess
}

// VisitBeamCandidates descends the volume tree, pruning subtrees whose
// bounding box does not overlap the ray's [tMin, tMax] expanded by the
// per-node gather radius, invoking fn at every surviving leaf-ish node
// (every node, since volume photons contribute individually rather than
// only at leaves).
func (vt *VolumeTree) VisitBeamCandidates(origin, dir mgl32.Vec3, tMin, tMax float32, fn func(index int) bool) {
	if len(vt.Photons) == 0 {
		return
	}
	invDir := mgl32.Vec3{1 / dir.X(), 1 / dir.Y(), 1 / dir.Z()}
	var walk func(i int) bool
	walk = func(i int) bool {
		p := &vt.Photons[i]
		if !aabbIntersectsRay(p.BoundMin, p.BoundMax, origin, invDir, tMin, tMax) {
			return true
		}
		if !fn(i) {
			return false
		}
		if unpackHasLeft(p.kd) && !walk(i+1) {
			return false
		}
		if unpackHasRight(p.kd) && !walk(int(unpackChildIdx(p.kd))) {
			return false
		}
		return true
	}
	walk(0)
}

func aabbIntersectsRay(bMin, bMax, origin, invDir mgl32.Vec3, tMin, tMax float32) bool {
	for axis := 0; axis < 3; axis++ {
		t0 := (bMin[axis] - origin[axis]) * invDir[axis]
		t1 := (bMax[axis] - origin[axis]) * invDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return false
		}
	}
	return true
}
