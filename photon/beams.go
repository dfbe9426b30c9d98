package photon

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/bvh"
)

// BeamSet is a BVH over path-photon beams; Radius is the 1-D kernel width
// perpendicular to a beam, set per scene through NewBeamSet.
type BeamSet struct {
	Photons []PathPhoton
	Radius  float32
	nodes   []bvh.Node
}

// NewBeamSet builds a BVH-over-beams from path photons, one beam per path
// photon (its segment from Position to EndPosition), so ray-beam queries
// prune to only the candidates
// whose expanded bounding box overlaps the query ray.
func NewBeamSet(photons []PathPhoton, radius float32) *BeamSet {
	items := make([]bvh.Item, len(photons))
	for i, p := range photons {
		a, b := p.Position, p.EndPosition()
		minP := componentMin(a, b).Sub(mgl32.Vec3{radius, radius, radius})
		maxP := componentMax(a, b).Add(mgl32.Vec3{radius, radius, radius})
		items[i] = bvh.Item{Min: minP, Max: maxP, Index: int32(i)}
	}
	nodes := (&bvh.Builder{}).Build(items)
	return &BeamSet{Photons: photons, Radius: radius, nodes: nodes}
}

// beamKernel1D is the normalized 1-D kernel perpendicular to a beam,
// (3/(2r))(1 - d²/r²)² over d in [0, r], used for the perpendicular falloff
// of a ray-beam contribution.
func beamKernel1D(distSq, radiusSq float32) float32 {
	if distSq >= radiusSq {
		return 0
	}
	t := 1 - distSq/radiusSq
	return (3 / (2 * sqrtApprox(radiusSq))) * t * t
}

// closestApproach returns the squared distance between the query ray and
// the beam segment [a, a+dir*len], plus the ray parameter t at closest
// approach, via the standard skew-line closest-point formula.
func closestApproach(rayOrigin, rayDir, a, beamDir mgl32.Vec3, beamLen float32) (distSq, rayT float32) {
	w0 := rayOrigin.Sub(a)
	aDotA := rayDir.Dot(rayDir)
	aDotB := rayDir.Dot(beamDir)
	bDotB := beamDir.Dot(beamDir)
	aDotW := rayDir.Dot(w0)
	bDotW := beamDir.Dot(w0)

	denom := aDotA*bDotB - aDotB*aDotB
	var s, t float32
	if math.Abs(float64(denom)) < 1e-9 {
		s = 0
		if bDotB > 0 {
			t = bDotW / bDotB
		}
	} else {
		s = (aDotB*bDotW - bDotB*aDotW) / denom
		t = (aDotA*bDotW - aDotB*aDotW) / denom
	}
	if t < 0 {
		t = 0
	}
	if t > beamLen {
		t = beamLen
	}
	closestOnBeam := a.Add(beamDir.Mul(t))
	closestOnRay := rayOrigin.Add(rayDir.Mul(s))
	d := closestOnRay.Sub(closestOnBeam)
	return d.Dot(d), s
}

// Gather accumulates the 1-D beam kernel contribution from every candidate
// beam whose expanded bounds the query ray's [tMin, tMax] interval
// intersects, calling contribute(power, distSq, rayT, kernel) for the caller to
// fold in phase-function and transmittance weighting.
func (bs *BeamSet) Gather(rayOrigin, rayDir mgl32.Vec3, tMin, tMax float32, contribute func(power mgl32.Vec3, distSq, rayT float32, kernel float32)) {
	bvh.Visit(bs.nodes, rayOrigin, rayDir, tMin, tMax, func(leafIndex int32) bool {
		p := bs.Photons[leafIndex]
		beamDir := p.Direction
		distSq, rayT := closestApproach(rayOrigin, rayDir, p.Position, beamDir, p.ActualSegmentLength)
		k := beamKernel1D(distSq, bs.Radius*bs.Radius)
		if k > 0 {
			contribute(p.Power, distSq, rayT, k)
		}
		return true
	})
}

// Plane is a 2-D (or degenerate 1-D) photon-plane spanned by two
// successive path-photon segments, used to reduce variance in volumetric
// density estimation relative to point/beam estimators.
type Plane struct {
	Origin   mgl32.Vec3
	EdgeA    mgl32.Vec3
	EdgeB    mgl32.Vec3
	Power    mgl32.Vec3
	Is1D     bool // true when EdgeA and EdgeB are near-parallel (degenerate to a 1-D plane)
}

// BuildPlanes pairs adjacent path photons from the same emitter path into
// photon-planes. Pairing by array adjacency assumes the caller has grouped
// PathPhoton entries by path, which the shoot phase guarantees by writing
// each path's segments contiguously into its worker range.
func BuildPlanes(photons []PathPhoton) []Plane {
	planes := make([]Plane, 0, len(photons))
	for i := 0; i+1 < len(photons); i++ {
		a, b := photons[i], photons[i+1]
		edgeA := a.Direction.Mul(a.ActualSegmentLength)
		edgeB := b.Direction.Mul(b.ActualSegmentLength)
		cross := edgeA.Cross(edgeB)
		is1D := cross.Dot(cross) < 1e-10
		planes = append(planes, Plane{
			Origin: a.Position, EdgeA: edgeA, EdgeB: edgeB, Power: a.Power, Is1D: is1D,
		})
	}
	return planes
}

// IntersectRay intersects the query ray with the plane's quadrilateral,
// returning the barycentric-like (u, v) coordinates and hit distance.
func (pl Plane) IntersectRay(origin, dir mgl32.Vec3) (t, u, v float32, ok bool) {
	normal := pl.EdgeA.Cross(pl.EdgeB)
	denom := normal.Dot(dir)
	if math.Abs(float64(denom)) < 1e-9 {
		return 0, 0, 0, false
	}
	t = normal.Dot(pl.Origin.Sub(origin)) / denom
	if t < 0 {
		return 0, 0, 0, false
	}
	hit := origin.Add(dir.Mul(t)).Sub(pl.Origin)
	areaA := pl.EdgeA.Dot(pl.EdgeA)
	areaB := pl.EdgeB.Dot(pl.EdgeB)
	if areaA < 1e-12 || areaB < 1e-12 {
		return 0, 0, 0, false
	}
	u = hit.Dot(pl.EdgeA) / areaA
	v = hit.Dot(pl.EdgeB) / areaB
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
