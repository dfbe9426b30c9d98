// Package testscene provides minimal, non-performance-oriented reference
// implementations of the scene contracts: a pinhole camera, a Lambertian
// material, a point light, and a brute-force (linear-scan) scene. These
// exist for the core's own tests and the end-to-end scenarios exercising
// the integrators; a real binary would swap in a BVH-backed scene and
// JSON-driven object factories instead.
package testscene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/scene"
)

// Sphere is a minimal analytic primitive used by the brute-force scene.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
	Mat    scene.Material
	Lt     scene.Light
	Medium scene.Medium
}

func (s *Sphere) Material() scene.Material   { return s.Mat }
func (s *Sphere) Light() scene.Light         { return s.Lt }
func (s *Sphere) InsideMedium() scene.Medium { return s.Medium }

// intersect returns the nearest positive root of the sphere/ray quadratic
// within [ray.TNear, ray.TFar], or ok=false.
func (s *Sphere) intersect(ray scene.Ray) (t float32, ok bool) {
	oc := ray.Origin.Sub(s.Center)
	a := ray.Dir.Dot(ray.Dir)
	b := 2 * oc.Dot(ray.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	if t0 > ray.TNear && t0 < ray.TFar {
		return t0, true
	}
	if t1 > ray.TNear && t1 < ray.TFar {
		return t1, true
	}
	return 0, false
}

// Quad is an axis-aligned rectangle in the XZ plane at a fixed Y, spanning
// [center-halfExtents, center+halfExtents] — simple enough to act as a wall,
// floor, or area-emitter quad in the brute-force test scenes.
type Quad struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec2 // half-width along X and Z
	Normal      mgl32.Vec3
	Mat         scene.Material
	Lt          scene.Light
	Medium      scene.Medium
}

func (q *Quad) Material() scene.Material   { return q.Mat }
func (q *Quad) Light() scene.Light         { return q.Lt }
func (q *Quad) InsideMedium() scene.Medium { return q.Medium }

func (q *Quad) intersect(ray scene.Ray) (t float32, ok bool) {
	denom := q.Normal.Dot(ray.Dir)
	if denom > -1e-7 && denom < 1e-7 {
		return 0, false
	}
	tHit := q.Normal.Dot(q.Center.Sub(ray.Origin)) / denom
	if tHit <= ray.TNear || tHit >= ray.TFar {
		return 0, false
	}
	p := ray.At(tHit)
	local := p.Sub(q.Center)
	if abs32(local.X()) > q.HalfExtents.X() || abs32(local.Z()) > q.HalfExtents.Y() {
		return 0, false
	}
	return tHit, true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// anyPrimitive is the union the BruteForceScene scans; it can intersect
// itself and report its own surface normal at a hit point.
type anyPrimitive interface {
	scene.Primitive
	intersect(ray scene.Ray) (float32, bool)
	normalAt(p mgl32.Vec3) mgl32.Vec3
}

type sphereShape struct{ *Sphere }

func (s sphereShape) normalAt(p mgl32.Vec3) mgl32.Vec3 { return p.Sub(s.Center).Normalize() }

type quadShape struct{ *Quad }

func (q quadShape) normalAt(mgl32.Vec3) mgl32.Vec3 { return q.Normal }

// BruteForceScene intersects by linear scan over its primitive list. It
// satisfies scene.TraceableScene; intended for tests and small fixtures
// only, never production scale.
type BruteForceScene struct {
	Primitives []anyPrimitive
	LightList  []scene.Light
	lightOwner map[scene.Light]scene.Primitive
	Camera     scene.Camera
}

// NewBruteForceScene builds a scene from spheres and quads, wiring up the
// light list and light->primitive ownership map from whichever primitives
// carry a non-nil Light().
func NewBruteForceScene(cam scene.Camera, spheres []*Sphere, quads []*Quad) *BruteForceScene {
	s := &BruteForceScene{Camera: cam, lightOwner: map[scene.Light]scene.Primitive{}}
	for _, sp := range spheres {
		shape := sphereShape{sp}
		s.Primitives = append(s.Primitives, shape)
		if sp.Lt != nil {
			s.LightList = append(s.LightList, sp.Lt)
			s.lightOwner[sp.Lt] = shape
		}
	}
	for _, q := range quads {
		shape := quadShape{q}
		s.Primitives = append(s.Primitives, shape)
		if q.Lt != nil {
			s.LightList = append(s.LightList, q.Lt)
			s.lightOwner[q.Lt] = shape
		}
	}
	return s
}

func (s *BruteForceScene) Intersect(ray scene.Ray) (scene.SurfaceRecord, bool) {
	best := ray.TFar
	var hitPrim anyPrimitive
	for _, p := range s.Primitives {
		probe := ray
		probe.TFar = best
		if t, ok := p.intersect(probe); ok && t < best {
			best = t
			hitPrim = p
		}
	}
	if hitPrim == nil {
		return scene.SurfaceRecord{}, false
	}
	pos := ray.At(best)
	n := hitPrim.normalAt(pos)
	return scene.SurfaceRecord{
		T: best, Position: pos, Normal: n, GeoNormal: n, Primitive: hitPrim,
	}, true
}

func (s *BruteForceScene) Occluded(ray scene.Ray) bool {
	for _, p := range s.Primitives {
		if _, ok := p.intersect(ray); ok {
			return true
		}
	}
	return false
}

func (s *BruteForceScene) Cam() scene.Camera           { return s.Camera }
func (s *BruteForceScene) Lights() []scene.Light       { return s.LightList }
func (s *BruteForceScene) LightPrimitive(l scene.Light) scene.Primitive {
	return s.lightOwner[l]
}

// PinholeCamera is a Dirac (zero-lens-area) perspective camera.
type PinholeCamera struct {
	Position   mgl32.Vec3
	Forward    mgl32.Vec3
	Up         mgl32.Vec3
	Right      mgl32.Vec3
	FovY       float32 // radians
	Width      int
	Height     int
}

// NewPinholeCamera derives an orthonormal Right/Up/Forward basis looking
// from eye toward target with the given vertical field of view.
func NewPinholeCamera(eye, target, up mgl32.Vec3, fovY float32, w, h int) *PinholeCamera {
	fwd := target.Sub(eye).Normalize()
	right := fwd.Cross(up).Normalize()
	trueUp := right.Cross(fwd).Normalize()
	return &PinholeCamera{Position: eye, Forward: fwd, Up: trueUp, Right: right, FovY: fovY, Width: w, Height: h}
}

func (c *PinholeCamera) Resolution() (int, int) { return c.Width, c.Height }

func (c *PinholeCamera) GenerateRay(px, py int, u mgl32.Vec2) scene.Ray {
	aspect := float32(c.Width) / float32(c.Height)
	tanFov := float32(math.Tan(float64(c.FovY) / 2))
	sx := (2*((float32(px)+u.X())/float32(c.Width)) - 1) * aspect * tanFov
	sy := (1 - 2*((float32(py)+u.Y())/float32(c.Height))) * tanFov
	dir := c.Forward.Add(c.Right.Mul(sx)).Add(c.Up.Mul(sy)).Normalize()
	return scene.Ray{Origin: c.Position, Dir: dir, TNear: 1e-4, TFar: float32(1e30), Primary: true}
}

func (c *PinholeCamera) SampleDirect(p mgl32.Vec3) (px, py int, wi mgl32.Vec3, dist float32, pdf float32, importance mgl32.Vec3, ok bool) {
	delta := p.Sub(c.Position)
	dist = delta.Len()
	if dist < 1e-8 {
		return 0, 0, mgl32.Vec3{}, 0, 0, mgl32.Vec3{}, false
	}
	dirToP := delta.Mul(1 / dist)
	cosTheta := dirToP.Dot(c.Forward)
	if cosTheta <= 1e-6 {
		return 0, 0, mgl32.Vec3{}, 0, 0, mgl32.Vec3{}, false
	}
	tanFov := float32(math.Tan(float64(c.FovY) / 2))
	aspect := float32(c.Width) / float32(c.Height)
	local := dirToP.Mul(1 / cosTheta)
	sx := local.Dot(c.Right) / (aspect * tanFov)
	sy := local.Dot(c.Up) / tanFov
	fx := (sx + 1) / 2 * float32(c.Width)
	fy := (1 - sy) / 2 * float32(c.Height)
	if fx < 0 || fx >= float32(c.Width) || fy < 0 || fy >= float32(c.Height) {
		return 0, 0, mgl32.Vec3{}, 0, 0, mgl32.Vec3{}, false
	}
	// Dirac aperture: importance concentrated so that the measurement
	// equation's 1/(W*H) image-plane Jacobian is folded in by the caller.
	imp := float32(1) / (cosTheta * cosTheta * cosTheta)
	return int(fx), int(fy), dirToP.Mul(-1), dist, 1, mgl32.Vec3{imp, imp, imp}, true
}

// LambertianMaterial is a perfectly diffuse, non-Dirac BSDF.
type LambertianMaterial struct {
	Albedo mgl32.Vec3
}

func (m *LambertianMaterial) IsDirac() bool { return false }

func cosineSampleHemisphere(u mgl32.Vec2) mgl32.Vec3 {
	r := float32(math.Sqrt(float64(u.X())))
	theta := 2 * math.Pi * u.Y()
	x := r * float32(math.Cos(float64(theta)))
	y := r * float32(math.Sin(float64(theta)))
	z := float32(math.Sqrt(math.Max(0, float64(1-u.X()))))
	return mgl32.Vec3{x, y, z}
}

func (m *LambertianMaterial) Sample(event *scene.SurfaceScatterEvent, u1 float32, u2 mgl32.Vec2) bool {
	wo := cosineSampleHemisphere(u2)
	if event.Wi.Z() < 0 {
		wo = wo.Mul(-1)
	}
	event.Wo = wo
	event.Pdf = abs32(wo.Z()) / math.Pi
	event.Weight = m.Albedo
	event.SampledLobes = scene.LobeDiffuse | scene.LobeReflection
	return true
}

func (m *LambertianMaterial) Eval(event scene.SurfaceScatterEvent) mgl32.Vec3 {
	if event.Wi.Z()*event.Wo.Z() <= 0 {
		return mgl32.Vec3{}
	}
	return m.Albedo.Mul(1 / math.Pi)
}

func (m *LambertianMaterial) Pdf(event scene.SurfaceScatterEvent) float32 {
	if event.Wi.Z()*event.Wo.Z() <= 0 {
		return 0
	}
	return abs32(event.Wo.Z()) / math.Pi
}

// InvertSample reconstructs the (u1, u2) pair Sample would need to
// reproduce event.Wo, satisfying scene.Invertible. Sample's own u1
// argument is unused by cosineSampleHemisphere, so the returned u1 is an
// arbitrary placeholder; the meaningful values are packed into u2.
func (m *LambertianMaterial) InvertSample(event scene.SurfaceScatterEvent) (u1 float32, u2 mgl32.Vec2, ok bool) {
	wo := event.Wo
	if event.Wi.Z() < 0 {
		wo = wo.Mul(-1)
	}
	z := wo.Z()
	if z < 0 {
		return 0, mgl32.Vec2{}, false
	}
	radial := 1 - z*z
	theta := float32(math.Atan2(float64(wo.Y()), float64(wo.X())))
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return 0, mgl32.Vec2{radial, theta / (2 * math.Pi)}, true
}

// PointLight is a Dirac-position emitter with isotropic intensity.
type PointLight struct {
	Position  mgl32.Vec3
	Intensity mgl32.Vec3
}

func (l *PointLight) SampleDirect(p mgl32.Vec3, _ mgl32.Vec2) (wi mgl32.Vec3, dist float32, pdf float32, radiance mgl32.Vec3) {
	delta := l.Position.Sub(p)
	dist = delta.Len()
	if dist < 1e-8 {
		return mgl32.Vec3{}, 0, 0, mgl32.Vec3{}
	}
	wi = delta.Mul(1 / dist)
	return wi, dist, 1, l.Intensity.Mul(1 / (dist * dist))
}

func (l *PointLight) Emission(mgl32.Vec3, mgl32.Vec3, mgl32.Vec3) (mgl32.Vec3, float32) {
	return mgl32.Vec3{}, 0 // a point light can never be hit directly
}

func (l *PointLight) IsInfinite() bool { return false }
func (l *PointLight) Power() float32 {
	return 4 * math.Pi * (l.Intensity.X() + l.Intensity.Y() + l.Intensity.Z()) / 3
}

// AreaLight turns a Quad-shaped primitive into a one-sided diffuse emitter.
type AreaLight struct {
	Quad     *Quad
	Radiance mgl32.Vec3
}

func (l *AreaLight) area() float32 {
	return 4 * l.Quad.HalfExtents.X() * l.Quad.HalfExtents.Y()
}

func (l *AreaLight) SampleDirect(p mgl32.Vec3, u mgl32.Vec2) (wi mgl32.Vec3, dist float32, pdf float32, radiance mgl32.Vec3) {
	local := mgl32.Vec3{(u.X()*2 - 1) * l.Quad.HalfExtents.X(), 0, (u.Y()*2 - 1) * l.Quad.HalfExtents.Y()}
	pOnLight := l.Quad.Center.Add(local)
	delta := pOnLight.Sub(p)
	dist = delta.Len()
	if dist < 1e-8 {
		return mgl32.Vec3{}, 0, 0, mgl32.Vec3{}
	}
	wi = delta.Mul(1 / dist)
	cosLight := -wi.Dot(l.Quad.Normal)
	if cosLight <= 0 {
		return mgl32.Vec3{}, 0, 0, mgl32.Vec3{}
	}
	area := l.area()
	pdfArea := 1 / area
	pdfSolid := pdfArea * dist * dist / cosLight
	return wi, dist, pdfSolid, l.Radiance
}

func (l *AreaLight) Emission(hitPoint, n, wi mgl32.Vec3) (mgl32.Vec3, float32) {
	cosLight := -wi.Dot(n)
	if cosLight <= 0 {
		return mgl32.Vec3{}, 0
	}
	return l.Radiance, 1 / l.area()
}

func (l *AreaLight) IsInfinite() bool { return false }
func (l *AreaLight) Power() float32 {
	return math.Pi * l.area() * (l.Radiance.X() + l.Radiance.Y() + l.Radiance.Z()) / 3
}
