// Package pathtracer implements the unidirectional forward path-tracing
// integrator: camera -> ... -> light, with next-event estimation and MIS
// against direct emitter hits.
package pathtracer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
	"github.com/emberrender/ember/tracer"
)

// Integrator traces one camera path per sample and returns its estimated
// radiance along the primary ray.
type Integrator struct {
	Tracer *tracer.Tracer
}

func New(t *tracer.Tracer) *Integrator { return &Integrator{Tracer: t} }

// TraceSample runs one full camera-path sample starting at ray, returning
// the estimated radiance. Per the diagnostic policy, a NaN anywhere in the
// accumulated radiance, the path throughput or a scattered direction drops
// the sample (returns black) without poisoning neighboring samples.
func (i *Integrator) TraceSample(ray scene.Ray, s sampler.Sampler) mgl32.Vec3 {
	radiance := mgl32.Vec3{}
	throughput := mgl32.Vec3{1, 1, 1}
	specularBounce := true // first ray from the camera counts as "previous bounce specular"
	cur := ray

	for bounce := 0; bounce <= i.Tracer.Config.MaxBounces; bounce++ {
		rec, hit := i.Tracer.Intersect(cur)
		if !hit {
			radiance = radiance.Add(mulVec(throughput, environmentRadiance(i.Tracer, cur)))
			break
		}

		if light := rec.Primitive.Light(); light != nil {
			if specularBounce || !lightSelectable(i.Tracer, light) {
				em, _ := light.Emission(rec.Position, rec.GeoNormal, cur.Dir)
				radiance = radiance.Add(mulVec(throughput, em))
			}
		}

		if bounce >= i.Tracer.Config.MaxBounces {
			break
		}

		mat := rec.Primitive.Material()
		if mat == nil {
			break
		}

		direct, nextRay, continues := i.Tracer.HandleSurface(rec, mat, cur.Dir, &throughput, bounce, s)
		radiance = radiance.Add(direct)

		if hasNaN(radiance) || hasNaN(throughput) || hasNaN(nextRay.Dir) {
			return mgl32.Vec3{}
		}
		if !continues {
			break
		}
		specularBounce = mat.IsDirac()
		cur = nextRay
		s.AdvancePath()
	}

	return radiance
}

func lightSelectable(t *tracer.Tracer, l scene.Light) bool {
	for _, candidate := range t.Scene.Lights() {
		if candidate == l {
			return true
		}
	}
	return false
}

func environmentRadiance(t *tracer.Tracer, ray scene.Ray) mgl32.Vec3 {
	for _, l := range t.Scene.Lights() {
		if l.IsInfinite() {
			em, _ := l.Emission(ray.At(1e6), ray.Dir.Mul(-1), ray.Dir)
			return em
		}
	}
	return mgl32.Vec3{}
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

func hasNaN(v mgl32.Vec3) bool {
	return math.IsNaN(float64(v.X())) || math.IsNaN(float64(v.Y())) || math.IsNaN(float64(v.Z()))
}
