// Package photonmap implements the photon-map integrator: shoot, compact,
// build, and gather phases separated by hard barriers, per the newer of the
// two divergent photon-map trees this module is grounded on (the one with
// beams, photon-planes, and frustum-grid acceleration).
package photonmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/internal/workerpool"
	"github.com/emberrender/ember/photon"
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
	"github.com/emberrender/ember/tracer"
)

// Config bounds one photon-map render segment.
type Config struct {
	PhotonCount    int
	GatherK        int     // k-nearest-neighbor count for the surface estimate
	VolumeRadius   float32 // fixed squared-radius fallback for volume photons
	BeamRadius     float32
	UseFrustumGrid bool
}

// Maps holds the built acceleration structures for one segment; Gather
// reads them and never mutates them (read-only during gather, per the
// concurrency model).
type Maps struct {
	Surface   *photon.KDTree
	Volume    *photon.VolumeTree
	Beams     *photon.BeamSet
	Planes    []photon.Plane
	TotalPaths int64
}

// Integrator owns one photon-map segment's lifecycle: Shoot, then Build,
// then Gather per camera sample.
type Integrator struct {
	Tracer *tracer.Tracer
	Config Config
	Pool   *workerpool.Pool

	surfacePhotons []photon.Photon
	volumePhotons  []photon.VolumePhoton
	pathPhotons    []photon.PathPhoton
	ranges         []photon.Range
	pathCounter    int64

	Maps Maps
}

func New(t *tracer.Tracer, cfg Config, pool *workerpool.Pool) *Integrator {
	return &Integrator{Tracer: t, Config: cfg, Pool: pool}
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

// Shoot is phase 1: each worker draws emitters, traces photons, and writes
// into its pre-assigned disjoint range. Returns an error-free result; a
// photon-structure build failure (zero photons stored) is handled at
// Build, not here, per the error-handling design.
func (i *Integrator) Shoot(baseSeed uint32) {
	numWorkers := 1
	if i.Pool != nil {
		numWorkers = i.Pool.NumWorkers()
	}
	i.ranges = photon.NewRanges(i.Config.PhotonCount, numWorkers)
	i.surfacePhotons = make([]photon.Photon, i.Config.PhotonCount)
	i.volumePhotons = make([]photon.VolumePhoton, i.Config.PhotonCount)
	i.pathPhotons = make([]photon.PathPhoton, 0, i.Config.PhotonCount)

	pathsPerWorker := make([]int64, numWorkers)

	run := func(w int) error {
		r := &i.ranges[w]
		s := sampler.NewUniformSampler(baseSeed + uint32(w)*0x9E3779B1)
		sampleIdx := uint32(0)
		for r.Next < r.End {
			s.StartPath(uint32(w), sampleIdx)
			sampleIdx++
			pathsPerWorker[w]++
			i.shootOnePath(s, r)
		}
		return nil
	}

	if i.Pool != nil {
		i.Pool.NewTaskGroup(numWorkers, run).Wait()
	} else {
		run(0)
	}

	total := int64(0)
	for _, n := range pathsPerWorker {
		total += n
	}
	i.pathCounter = total
}

func (i *Integrator) shootOnePath(s sampler.Sampler, r *photon.Range) {
	light, selectPdf := i.Tracer.ChooseLightAdjoint(s)
	if light == nil {
		return
	}
	wi, _, pdfDir, radiance := light.SampleDirect(mgl32.Vec3{}, mgl32.Vec2{s.Next1D(), s.Next1D()})
	if pdfDir <= 0 {
		return
	}
	power := radiance.Mul(1 / (pdfDir * selectPdf))
	pos := mgl32.Vec3{}.Sub(wi.Mul(1e-3))
	cur := scene.Ray{Origin: pos, Dir: wi, TNear: 0, TFar: float32(1e30)}

	for bounce := 0; bounce < i.Tracer.Config.MaxBounces; bounce++ {
		rec, hit := i.Tracer.Intersect(cur)
		if !hit {
			return
		}
		mat := rec.Primitive.Material()
		if mat == nil {
			return
		}

		if !mat.IsDirac() {
			if idx, ok := r.Reserve(); ok {
				i.surfacePhotons[idx] = photon.Photon{
					Position: rec.Position, Incident: cur.Dir, Power: power, BounceIndex: uint16(bounce),
				}
			}
		}

		if med := rec.Primitive.InsideMedium(); med != nil {
			i.pathPhotons = append(i.pathPhotons, photon.NewPathPhoton(rec.Position, cur.Dir, power, rec.T, rec.T, bounce, true))
		}

		frame := scene.NewFrame(rec.Normal)
		event := scene.SurfaceScatterEvent{Frame: frame, Wi: frame.ToLocal(cur.Dir.Mul(-1))}
		u1 := s.Next1D()
		u2a, u2b := s.Next2D()
		if !mat.Sample(&event, u1, mgl32.Vec2{u2a, u2b}) {
			return
		}
		woWorld := frame.ToWorld(event.Wo)
		power = mulVec(power, event.Weight)
		cur = scene.Spawn(rec.Position, rec.GeoNormal, woWorld, bounce+1)
		s.AdvancePath()
	}
}

// Compact is phase 2: ranges are compacted into a contiguous prefix and
// photon power is divided by the total number of emitter paths shot.
func (i *Integrator) Compact() {
	n := photon.Compact(i.surfacePhotons, i.ranges)
	i.surfacePhotons = i.surfacePhotons[:n]
	photon.ScalePower(i.surfacePhotons, i.pathCounter)
	photon.ScalePathPhotonPower(i.pathPhotons, i.pathCounter)
	i.Maps.TotalPaths = i.pathCounter
}

// Build is phase 3: k-d tree construction over the surface photons (forked
// to the pool for large subtrees), and BVH-over-beams / photon-planes from
// the path photons. No volume-photon hierarchy is built here: Maps.Volume
// stays nil. With no surface photons stored, only an empty k-d tree is
// built.
func (i *Integrator) Build() {
	if len(i.surfacePhotons) == 0 {
		i.Maps.Surface = photon.BuildKDTree(nil, i.Pool)
		return
	}
	i.Maps.Surface = photon.BuildKDTree(i.surfacePhotons, i.Pool)
	i.Maps.Beams = photon.NewBeamSet(i.pathPhotons, i.Config.BeamRadius)
	i.Maps.Planes = photon.BuildPlanes(i.pathPhotons)
}

// GatherSurface evaluates the k-nearest-neighbor surface density estimate
// at a scattering event: Σ power·f_bsdf / (π r²), r² the distance to the
// k-th neighbor. A zero-photon structure returns zero, not an error.
func (i *Integrator) GatherSurface(p mgl32.Vec3, mat scene.Material, event scene.SurfaceScatterEvent) mgl32.Vec3 {
	if i.Maps.Surface == nil || len(i.Maps.Surface.Photons) == 0 {
		return mgl32.Vec3{}
	}
	indices, maxDistSq := i.Maps.Surface.KNN([3]float32{p.X(), p.Y(), p.Z()}, i.Config.GatherK)
	if len(indices) == 0 || maxDistSq <= 0 {
		return mgl32.Vec3{}
	}
	sum := mgl32.Vec3{}
	for _, idx := range indices {
		ph := i.Maps.Surface.Photons[idx]
		ev := event
		ev.Wo = event.Frame.ToLocal(ph.Incident.Mul(-1))
		f := mat.Eval(ev)
		sum = sum.Add(mulVec(f, ph.Power))
	}
	return sum.Mul(1 / (float32(math.Pi) * maxDistSq))
}
