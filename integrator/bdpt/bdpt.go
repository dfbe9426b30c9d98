// Package bdpt implements the bidirectional path tracer: camera and light
// subpaths are traced independently, pruned to area measure, then every
// (s, t) connection strategy compatible with the requested path length is
// evaluated and combined with a balance-heuristic MIS weight.
package bdpt

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/pathvertex"
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
	"github.com/emberrender/ember/tracer"
)

// minCosine rejects a connection whose mutual cosine factor indicates a
// same-surface pathology (near-grazing or coincident-point connection).
const minCosine = 1e-5

// Integrator traces a camera and a light subpath per sample and sums every
// admissible (s, t) connection's MIS-weighted contribution.
type Integrator struct {
	Tracer *tracer.Tracer
	// Pyramid, if non-nil, receives per-technique contributions indexed by
	// (s, t) in addition to the combined estimate.
	Pyramid *ImagePyramid
}

func New(t *tracer.Tracer) *Integrator { return &Integrator{Tracer: t} }

// ImagePyramid accumulates separate per-(s,t)-technique buffers.
type ImagePyramid struct {
	MaxBounces int
	Buckets    map[[2]int]mgl32.Vec3
}

func NewImagePyramid(maxBounces int) *ImagePyramid {
	return &ImagePyramid{MaxBounces: maxBounces, Buckets: map[[2]int]mgl32.Vec3{}}
}

func (p *ImagePyramid) add(s, t int, v mgl32.Vec3) {
	key := [2]int{s, t}
	p.Buckets[key] = p.Buckets[key].Add(v)
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// GenerateCameraSubpath traces a camera path into path, up to
// Config.MaxBounces+1 vertices (the +1 accounts for the camera root).
func (bd *Integrator) GenerateCameraSubpath(ray scene.Ray, s sampler.Sampler, path *pathvertex.LightPath) {
	path.Seed(pathvertex.CameraRoot(bd.Tracer.Scene.Cam(), ray.Origin, 1))
	bd.extendPath(path, ray, mgl32.Vec3{1, 1, 1}, s, true)
}

// GenerateLightSubpath traces a light path into path, rooted at a sampled
// emitter position.
func (bd *Integrator) GenerateLightSubpath(s sampler.Sampler, path *pathvertex.LightPath) {
	light, selectPdf := bd.Tracer.ChooseLightAdjoint(s)
	if light == nil {
		path.Clear()
		return
	}
	// The minimal Light contract samples toward a receiver point rather
	// than emitting from the light's own surface; approximate an emission
	// sample by drawing a direction from the light toward the scene origin
	// and treating that as the initial ray, matching the light-tracer
	// package's same accommodation.
	wi, _, pdfDir, radiance := light.SampleDirect(mgl32.Vec3{}, mgl32.Vec2{s.Next1D(), s.Next1D()})
	if pdfDir <= 0 {
		path.Clear()
		return
	}
	originPoint := mgl32.Vec3{}.Sub(wi.Mul(1e-3))
	path.Seed(pathvertex.EmitterRoot(light, originPoint, wi.Mul(-1), radiance, pdfDir*selectPdf, light.IsInfinite()))
	throughput := radiance.Mul(1 / (pdfDir * selectPdf))
	ray := scene.Ray{Origin: originPoint, Dir: wi, TNear: 0, TFar: float32(1e30)}
	bd.extendPath(path, ray, throughput, s, false)
}

func (bd *Integrator) extendPath(path *pathvertex.LightPath, ray scene.Ray, throughput mgl32.Vec3, s sampler.Sampler, fromCamera bool) {
	cur := ray
	for bounce := 0; bounce < bd.Tracer.Config.MaxBounces && !path.Full(); bounce++ {
		rec, hit := bd.Tracer.Intersect(cur)
		if !hit {
			return
		}
		mat := rec.Primitive.Material()
		if mat == nil {
			return
		}
		frame := scene.NewFrame(rec.Normal)
		event := scene.SurfaceScatterEvent{Frame: frame, Wi: frame.ToLocal(cur.Dir.Mul(-1))}

		tip := path.Tip()
		vtx := pathvertex.SurfaceVertex(rec, mat, event, throughput, 1)
		edge := pathvertex.NewEdge(*tip, vtx, 1, 1)
		if !path.Extend(vtx, edge) {
			return
		}

		u1 := s.Next1D()
		u2a, u2b := s.Next2D()
		sampleEvent := event
		if !mat.Sample(&sampleEvent, u1, mgl32.Vec2{u2a, u2b}) {
			return
		}
		woWorld := frame.ToWorld(sampleEvent.Wo)
		throughput = mulVec(throughput, sampleEvent.Weight)
		path.Tip().PdfForward = sampleEvent.Pdf
		path.Tip().Throughput = throughput

		cur = scene.Spawn(rec.Position, rec.GeoNormal, woWorld, bounce+1)
		s.AdvancePath()
	}
}

// TraceSample generates both subpaths for one sample and returns the
// combined MIS-weighted radiance estimate along the primary ray.
func (bd *Integrator) TraceSample(ray scene.Ray, s sampler.Sampler) mgl32.Vec3 {
	cameraPath := pathvertex.NewLightPath(bd.Tracer.Config.MaxBounces)
	lightPath := pathvertex.NewLightPath(bd.Tracer.Config.MaxBounces)

	bd.GenerateCameraSubpath(ray, s, cameraPath)
	bd.GenerateLightSubpath(s, lightPath)

	cameraPath.Prune()
	lightPath.Prune()

	total := mgl32.Vec3{}
	nt, ns := cameraPath.Len(), lightPath.Len()
	for t := 1; t <= nt; t++ {
		for sLen := 0; sLen <= ns; sLen++ {
			pathLength := sLen + t - 1
			if pathLength < bd.Tracer.Config.MinBounces || pathLength > bd.Tracer.Config.MaxBounces {
				continue
			}
			if sLen == 0 {
				// t-vertex camera path hitting a light directly; already
				// handled by a plain path-tracer-style estimator when
				// Pyramid accounting isn't required, so skip here to avoid
				// double counting against connect's s>=1 techniques.
				continue
			}
			contrib, weight := bd.connect(cameraPath, lightPath, sLen, t)
			if contrib == (mgl32.Vec3{}) {
				continue
			}
			weighted := contrib.Mul(weight)
			total = total.Add(weighted)
			if bd.Pyramid != nil {
				bd.Pyramid.add(sLen, t, weighted)
			}
		}
	}
	return total
}

// connect evaluates the (s, t) strategy: connect lightPath[s-1] to
// cameraPath[t-1], returning the unweighted contribution and its
// balance-heuristic MIS weight.
func (bd *Integrator) connect(cameraPath, lightPath *pathvertex.LightPath, s, t int) (mgl32.Vec3, float32) {
	cv := cameraPath.At(t - 1)
	lv := lightPath.At(s - 1)

	if !cv.Connectable || !lv.Connectable {
		return mgl32.Vec3{}, 0
	}

	delta := cv.Position.Sub(lv.Position)
	distSq := delta.Dot(delta)
	if distSq < 1e-12 {
		return mgl32.Vec3{}, 0
	}
	dist := sqrtf(distSq)
	dir := delta.Mul(1 / dist)

	cosC := float32(1)
	if cv.OnSurface {
		cosC = absf(cv.GeometricNorm.Dot(dir))
	}
	cosL := float32(1)
	if lv.OnSurface {
		cosL = absf(lv.GeometricNorm.Dot(dir.Mul(-1)))
	}
	if cosC < minCosine || cosL < minCosine {
		return mgl32.Vec3{}, 0
	}

	shadowRay := scene.Ray{Origin: lv.Position.Add(dir.Mul(1e-4)), Dir: dir, TNear: 0, TFar: dist * (1 - 1e-3)}
	tr := bd.Tracer.GeneralizedShadowRay(shadowRay)
	if tr == (mgl32.Vec3{}) {
		return mgl32.Vec3{}, 0
	}

	fCam := bsdfAt(cv, dir.Mul(-1))
	fLight := bsdfAt(lv, dir)
	if fCam == (mgl32.Vec3{}) || fLight == (mgl32.Vec3{}) {
		return mgl32.Vec3{}, 0
	}

	geometry := float32(1)
	if !(lv.IsInfinite && s == 1) {
		geometry = 1 / distSq
	}

	contrib := mulVec(mulVec(cv.Throughput, fCam), mulVec(fLight, lv.Throughput)).Mul(cosC * cosL * geometry)
	contrib = mulVec(contrib, tr)

	weight := bd.misWeight(cameraPath, lightPath, s, t)
	return contrib, weight
}

// bsdfAt evaluates a connectable vertex's local scattering function toward
// worldDir. Surface vertices consult their Material; volume vertices their
// phase function (treated as an isotropic unit-albedo "material").
func bsdfAt(v *pathvertex.Vertex, worldDir mgl32.Vec3) mgl32.Vec3 {
	switch v.Kind {
	case pathvertex.KindSurface:
		frame := v.Event.Frame
		ev := v.Event
		ev.Wo = frame.ToLocal(worldDir)
		return v.Material.Eval(ev)
	case pathvertex.KindVolume:
		p := v.Phase.Eval(v.Wo, worldDir)
		return mgl32.Vec3{p, p, p}
	case pathvertex.KindEmitter:
		em, _ := v.Light.Emission(v.Position, v.GeometricNorm, worldDir.Mul(-1))
		return em
	case pathvertex.KindCamera:
		_, _, _, _, _, importance, ok := v.Camera.SampleDirect(v.Position.Add(worldDir))
		if !ok {
			return mgl32.Vec3{1, 1, 1}
		}
		return importance
	}
	return mgl32.Vec3{}
}

func sqrtf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}

// misWeight computes the balance-heuristic weight for the (s, t) technique:
// 1 / sum_i (p_i / p_{s,t}), where the sum runs over every (s', t') with
// s'+t' == s+t that could have produced the same path, approximated here by
// the product of adjacent forward/backward density ratios walking away from
// the connection seam in both directions — the standard area-measure
// recursive-ratio technique, using InvGeometryFactor at Dirac-adjacent hops.
func (bd *Integrator) misWeight(cameraPath, lightPath *pathvertex.LightPath, s, t int) float32 {
	sumRi := float32(0)

	ri := float32(1)
	for i := s; i >= 1; i-- {
		var pdfRatio float32
		if i == s {
			pdfRatio = ratioAtSeam(lightPath.At(i-1), cameraPath.At(t-1))
		} else {
			pdfRatio = ratioAlongPath(lightPath, i)
		}
		ri *= pdfRatio
		if !lightPath.At(i - 1).Connectable {
			continue
		}
		sumRi += ri
	}

	ri = 1
	for i := t; i >= 1; i-- {
		var pdfRatio float32
		if i == t {
			pdfRatio = ratioAtSeam(cameraPath.At(i-1), lightPath.At(s-1))
		} else {
			pdfRatio = ratioAlongPath(cameraPath, i)
		}
		ri *= pdfRatio
		if i-2 >= 0 && !cameraPath.At(i - 2).Connectable {
			continue
		}
		sumRi += ri
	}

	if sumRi+1 <= 0 {
		return 0
	}
	return 1 / (1 + sumRi)
}

// ratioAlongPath returns pdfBackward/pdfForward for the vertex at index
// i-1, the per-hop density ratio used when walking a subpath's own chain
// away from the connection seam.
func ratioAlongPath(path *pathvertex.LightPath, i int) float32 {
	v := path.At(i - 1)
	if v.PdfForward <= 0 {
		return 0
	}
	return v.PdfBackward / v.PdfForward
}

// ratioAtSeam returns the density ratio across the newly formed connection
// edge, re-expressing Dirac-adjacent densities in projected solid-angle
// measure via InvGeometryFactor so the ratio stays meaningful.
func ratioAtSeam(v, other *pathvertex.Vertex) float32 {
	if v.PdfForward <= 0 {
		return 0
	}
	backward := v.PdfBackward
	if !other.Connectable {
		backward = pathvertex.InvGeometryFactor(backward, *other, *v, v.GeometricNorm, v.OnSurface)
	}
	return backward / v.PdfForward
}
