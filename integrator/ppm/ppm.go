// Package ppm implements progressive photon mapping: repeated photon-map
// segments with a shrinking gather radius, accumulated into a running
// estimate that converges to the correct image as iteration count grows.
package ppm

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/internal/workerpool"
	"github.com/emberrender/ember/integrator/photonmap"
	"github.com/emberrender/ember/scene"
	"github.com/emberrender/ember/tracer"
)

// Config parameterizes the radius-reduction schedule: r_i = r_0 * Π(k+α)/(k+1).
type Config struct {
	PhotonmapConfig photonmap.Config
	InitialRadius   float32
	Alpha           float32 // in (0, 1)
}

// Integrator runs successive photonmap.Integrator segments, each with a
// freshly shot photon batch at a reduced radius, gathering once per pixel
// per iteration into a running per-pixel mean.
type Integrator struct {
	Tracer *tracer.Tracer
	Config Config
	Pool   *workerpool.Pool

	iteration int
	radius    float32
	running   map[[2]int]mgl32.Vec3
	samples   map[[2]int]int
}

func New(t *tracer.Tracer, cfg Config, pool *workerpool.Pool) *Integrator {
	return &Integrator{
		Tracer: t, Config: cfg, Pool: pool,
		radius:  cfg.InitialRadius,
		running: map[[2]int]mgl32.Vec3{},
		samples: map[[2]int]int{},
	}
}

// nextRadius advances the geometric radius-reduction schedule by one
// iteration: r_i = r_{i-1} * (i+alpha)/(i+1).
func (i *Integrator) nextRadius() float32 {
	k := float32(i.iteration + 1)
	return i.radius * (k + i.Config.Alpha) / (k + 1)
}

// RunIteration shoots a fresh photon batch at the current radius, builds
// structures, gathers at every pixel's primary ray via gatherPixel, and
// folds the result into the running per-pixel mean before shrinking the
// radius for the next call.
func (i *Integrator) RunIteration(baseSeed uint32, w, h int, primaryRay func(x, y int) scene.Ray, gatherPixel func(pm *photonmap.Integrator, ray scene.Ray, radius float32) mgl32.Vec3) {
	cfg := i.Config.PhotonmapConfig
	pm := photonmap.New(i.Tracer, cfg, i.Pool)
	pm.Shoot(baseSeed + uint32(i.iteration)*0x2545F491)
	pm.Compact()
	pm.Build()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ray := primaryRay(x, y)
			estimate := gatherPixel(pm, ray, i.radius)
			key := [2]int{x, y}
			i.running[key] = i.running[key].Add(estimate)
			i.samples[key]++
		}
	}

	i.radius = i.nextRadius()
	i.iteration++
}

// Pixel returns the current running mean for (x, y).
func (i *Integrator) Pixel(x, y int) mgl32.Vec3 {
	key := [2]int{x, y}
	n := i.samples[key]
	if n == 0 {
		return mgl32.Vec3{}
	}
	return i.running[key].Mul(1 / float32(n))
}

// Iteration reports how many RunIteration calls have completed.
func (i *Integrator) Iteration() int { return i.iteration }

// Radius reports the current gather radius.
func (i *Integrator) Radius() float32 { return i.radius }
