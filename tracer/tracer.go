// Package tracer implements the protocol layer shared by every integrator:
// scene intersection glue, direct-light sampling with MIS against the BSDF
// sample, medium transitions, and generalized (see-through) shadow rays.
package tracer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
)

// Config bounds a tracer's path-continuation policy.
type Config struct {
	MinBounces int
	MaxBounces int
	RRDepth    int // bounce index at which Russian roulette starts being applied
}

// Tracer is the base protocol object; integrators embed or hold one and
// call its methods rather than touching scene.TraceableScene directly.
type Tracer struct {
	Scene  scene.TraceableScene
	Config Config
}

func New(sc scene.TraceableScene, cfg Config) *Tracer {
	return &Tracer{Scene: sc, Config: cfg}
}

// Intersect wraps the scene BVH lookup.
func (t *Tracer) Intersect(ray scene.Ray) (scene.SurfaceRecord, bool) {
	return t.Scene.Intersect(ray)
}

// PowerHeuristic is the beta=2 MIS weight between two competing pdfs, used
// for direct-light / BSDF-sample combination (distinct from BDPT's
// balance-heuristic, beta=1, full-path weighting).
func PowerHeuristic(pdfA, pdfB float32) float32 {
	a := pdfA * pdfA
	b := pdfB * pdfB
	if a+b == 0 {
		return 0
	}
	return a / (a + b)
}

// ChooseLightAdjoint selects an emitter from the scene's light list with
// probability proportional to its approximate radiant power, returning the
// chosen light and the probability it was chosen with.
func (t *Tracer) ChooseLightAdjoint(s sampler.Sampler) (scene.Light, float32) {
	lights := t.Scene.Lights()
	if len(lights) == 0 {
		return nil, 0
	}
	total := float32(0)
	for _, l := range lights {
		total += l.Power()
	}
	if total <= 0 {
		idx := s.NextDiscrete(len(lights))
		return lights[idx], 1 / float32(len(lights))
	}
	u := s.Next1D() * total
	acc := float32(0)
	for _, l := range lights {
		acc += l.Power()
		if u <= acc {
			return l, l.Power() / total
		}
	}
	last := lights[len(lights)-1]
	return last, last.Power() / total
}

// SampleDirect performs next-event estimation from hit point p with
// geometric normal n toward a light chosen via ChooseLightAdjoint,
// returning the MIS-weighted contribution (already divided by the light
// selection and sampling pdf, and shadow-tested).
func (t *Tracer) SampleDirect(p, n mgl32.Vec3, mat scene.Material, event scene.SurfaceScatterEvent, frame scene.Frame, s sampler.Sampler) mgl32.Vec3 {
	light, lightSelectPdf := t.ChooseLightAdjoint(s)
	if light == nil || lightSelectPdf <= 0 {
		return mgl32.Vec3{}
	}
	u1, u2 := s.Next2D()
	wi, dist, pdfLight, radiance := light.SampleDirect(p, mgl32.Vec2{u1, u2})
	if pdfLight <= 0 || (radiance == mgl32.Vec3{}) {
		return mgl32.Vec3{}
	}

	shadowRay := scene.Spawn(p, n, wi, 0)
	shadowRay.TFar = dist * (1 - 1e-3)
	tr := t.GeneralizedShadowRay(shadowRay)
	if tr == (mgl32.Vec3{}) {
		return mgl32.Vec3{}
	}

	localWi := frame.ToLocal(wi)
	evalEvent := event
	evalEvent.Wo = localWi
	f := mat.Eval(evalEvent)
	if f == (mgl32.Vec3{}) {
		return mgl32.Vec3{}
	}
	bsdfPdf := mat.Pdf(evalEvent)
	cosTheta := absf(localWi.Z())

	misWeight := float32(1)
	if !mat.IsDirac() {
		misWeight = PowerHeuristic(pdfLight*lightSelectPdf, bsdfPdf)
	}

	contrib := mulVec(f, radiance).Mul(cosTheta * misWeight / (pdfLight * lightSelectPdf))
	return mulVec(contrib, tr)
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

// HandleSurface applies the BSDF at a surface hit: samples a lobe, folds in
// the direct-light contribution (if the material is non-Dirac), updates
// throughput, applies Russian roulette past RRDepth, and returns the
// outgoing ray plus whether the path should continue.
func (t *Tracer) HandleSurface(rec scene.SurfaceRecord, mat scene.Material, wiWorld mgl32.Vec3, throughput *mgl32.Vec3, bounce int, s sampler.Sampler) (direct mgl32.Vec3, outRay scene.Ray, continues bool) {
	frame := scene.NewFrame(rec.Normal)
	event := scene.SurfaceScatterEvent{Frame: frame, Wi: frame.ToLocal(wiWorld.Mul(-1))}

	if !mat.IsDirac() {
		direct = t.SampleDirect(rec.Position, rec.GeoNormal, mat, event, frame, s)
		direct = mulVec(direct, *throughput)
	}

	u1 := s.Next1D()
	u2a, u2b := s.Next2D()
	if !mat.Sample(&event, u1, mgl32.Vec2{u2a, u2b}) {
		return direct, scene.Ray{}, false
	}
	if event.Pdf <= 0 {
		return direct, scene.Ray{}, false
	}

	woWorld := frame.ToWorld(event.Wo)
	*throughput = mulVec(*throughput, event.Weight)

	if bounce >= t.Config.RRDepth {
		survival := maxComponent(*throughput)
		if survival < 1e-4 {
			return direct, scene.Ray{}, false
		}
		if survival > 1 {
			survival = 1
		}
		if s.Next1D() > survival {
			return direct, scene.Ray{}, false
		}
		*throughput = throughput.Mul(1 / survival)
	}

	outRay = scene.Spawn(rec.Position, rec.GeoNormal, woWorld, bounce+1)
	return direct, outRay, true
}

func maxComponent(v mgl32.Vec3) float32 {
	m := v.X()
	if v.Y() > m {
		m = v.Y()
	}
	if v.Z() > m {
		m = v.Z()
	}
	return m
}

// HandleVolume samples a free-flight distance through medium m along ray,
// branching either to an in-scatter event (phase-function sample) or a
// surface hit on exit. Throughput is scaled by the medium sample's
// weight/pdf; no Russian roulette is applied here.
func (t *Tracer) HandleVolume(ray scene.Ray, m scene.Medium, state *scene.MediumState, throughput *mgl32.Vec3, bounce int, s sampler.Sampler) (ms scene.MediumSample, outRay scene.Ray, scattered bool) {
	u1 := s.Next1D()
	u2a, u2b := s.Next2D()
	ms = m.SampleDistance(ray, state, u1, mgl32.Vec2{u2a, u2b})
	if ms.Pdf <= 0 {
		return ms, scene.Ray{}, false
	}
	*throughput = mulVec(*throughput, ms.Weight.Mul(1/ms.Pdf))
	if ms.Exited {
		return ms, scene.Ray{}, false
	}
	wo, pdf := ms.Phase.Sample(ray.Dir, mgl32.Vec2{s.Next1D(), s.Next1D()})
	if pdf <= 0 {
		return ms, scene.Ray{}, false
	}
	outRay = scene.Ray{Origin: ms.Position, Dir: wo, TNear: 1e-4, TFar: float32(1e30), BounceNum: bounce + 1}
	return ms, outRay, true
}

// GeneralizedShadowRay traces through zero-angular-deviation (transparency,
// index-matched) forward events accumulating transmittance, terminating on
// an opaque hit or scene exit. Returns the zero vector if fully occluded.
func (t *Tracer) GeneralizedShadowRay(ray scene.Ray) mgl32.Vec3 {
	tr := mgl32.Vec3{1, 1, 1}
	cur := ray
	for bounces := 0; bounces < 64; bounces++ {
		rec, hit := t.Scene.Intersect(cur)
		if !hit {
			return tr
		}
		mat := rec.Primitive.Material()
		if mat == nil || !isForwardEvent(mat) {
			return mgl32.Vec3{}
		}
		cur = scene.Spawn(rec.Position, rec.GeoNormal, cur.Dir, cur.BounceNum+1)
		cur.TFar = ray.TFar - rec.T
	}
	return mgl32.Vec3{}
}

// isForwardEvent reports whether a material is a zero-deviation
// (transparent / index-matched) interface that a generalized shadow ray
// sees through rather than terminating at.
func isForwardEvent(mat scene.Material) bool {
	type forwardTagger interface{ IsForwardEvent() bool }
	if ft, ok := mat.(forwardTagger); ok {
		return ft.IsForwardEvent()
	}
	return false
}

// GeneralizedShadowRayAndPdfs is GeneralizedShadowRay plus the product of
// forward/backward densities accumulated while passing through forward
// events, for use in BDPT's MIS weight recomputation.
func (t *Tracer) GeneralizedShadowRayAndPdfs(ray scene.Ray) (transmittance mgl32.Vec3, pdfForward, pdfBackward float32) {
	transmittance = t.GeneralizedShadowRay(ray)
	// The reference surfaces here are Dirac forward events: each passes
	// probability 1 through in both directions, so densities are unity
	// unless a future forward-event material reports otherwise.
	return transmittance, 1, 1
}
