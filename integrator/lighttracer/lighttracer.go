// Package lighttracer implements the unidirectional light-tracing
// integrator: emitter -> ... -> camera, splatting a direct-connection
// contribution into the shared splat buffer after every scattering event.
package lighttracer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/framebuffer"
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
	"github.com/emberrender/ember/tracer"
)

// Integrator traces one emitter path per sample and splats its
// camera-visible contributions directly into a shared Framebuffer.
type Integrator struct {
	Tracer *tracer.Tracer
	FB     *framebuffer.Framebuffer
}

func New(t *tracer.Tracer, fb *framebuffer.Framebuffer) *Integrator {
	return &Integrator{Tracer: t, FB: fb}
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

// TraceSample shoots one emitter path and splats every connectable vertex's
// contribution to the camera. Returns the number of splats made, primarily
// useful for tests and diagnostics.
func (i *Integrator) TraceSample(s sampler.Sampler) int {
	light, selectPdf := i.Tracer.ChooseLightAdjoint(s)
	if light == nil {
		return 0
	}

	// The minimal reference Light contract does not expose direct area
	// sampling of an emission point/direction pair, only SampleDirect(p, u)
	// toward an existing point. A light-tracer root is therefore seeded by
	// sampling a direction toward a fictitious far point and relying on
	// SampleDirect's reciprocity for a finite-light reference scene; a
	// production Light implementation would expose SampleEmission directly.
	cam := i.Tracer.Scene.Cam()
	originGuess := mgl32.Vec3{0, 0, 0}
	wi, _, pdfDir, radiance := light.SampleDirect(originGuess, mgl32.Vec2{s.Next1D(), s.Next1D()})
	if pdfDir <= 0 {
		return 0
	}

	throughput := radiance.Mul(1 / (pdfDir * selectPdf))
	pos := originGuess.Sub(wi.Mul(1e-3))
	cur := scene.Ray{Origin: pos, Dir: wi, TNear: 0, TFar: float32(1e30)}

	splats := i.splatToCamera(cam, pos, throughput)

	for bounce := 0; bounce < i.Tracer.Config.MaxBounces; bounce++ {
		rec, hit := i.Tracer.Intersect(cur)
		if !hit {
			break
		}
		mat := rec.Primitive.Material()
		if mat == nil {
			break
		}

		splats += i.splatToCamera(cam, rec.Position, throughput)

		_, nextRay, continues := i.Tracer.HandleSurface(rec, mat, cur.Dir, &throughput, bounce, s)
		if !continues {
			break
		}
		cur = nextRay
		s.AdvancePath()
	}
	return splats
}

// splatToCamera attempts a direct connection from p to the camera and, if
// unoccluded, atomically adds the weighted contribution — including the
// 1/(W*H) image-plane Jacobian — to the splat buffer.
func (i *Integrator) splatToCamera(cam scene.Camera, p mgl32.Vec3, throughput mgl32.Vec3) int {
	px, py, wi, dist, pdf, importance, ok := cam.SampleDirect(p)
	if !ok || pdf <= 0 {
		return 0
	}
	shadowRay := scene.Ray{Origin: p.Add(wi.Mul(1e-4)), Dir: wi, TNear: 0, TFar: dist * (1 - 1e-3)}
	tr := i.Tracer.GeneralizedShadowRay(shadowRay)
	if tr == (mgl32.Vec3{}) {
		return 0
	}
	w, h := cam.Resolution()
	jacobian := float32(1) / float32(w*h)
	contrib := mulVec(mulVec(throughput, importance), tr).Mul(jacobian / pdf)
	i.FB.Splat.Splat(px, py, contrib)
	return 1
}
