// Package scene defines the narrow contracts the render core consumes but
// does not implement: ray-scene intersection, camera, primitive, material
// (BSDF), medium, and light evaluation. A real binary wires a BVH-backed
// scene and JSON-driven object factories behind these interfaces; this
// package only carries the contract plus (in scene/testscene) minimal
// reference doubles used by the core's own tests.
package scene

import "github.com/go-gl/mathgl/mgl32"

// Ray is a traced ray: origin, unit direction, valid parametric interval,
// whether it is a primary (camera) ray, and how many bounces produced it.
type Ray struct {
	Origin    mgl32.Vec3
	Dir       mgl32.Vec3
	TNear     float32
	TFar      float32
	Primary   bool
	BounceNum int
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// epsilonOffset nudges a spawned ray's origin off the surface it left, along
// the geometric normal, to avoid immediate self-intersection.
const epsilonOffset = 1e-4

// Spawn builds a new ray leaving a surface at p along dir, offset by a small
// epsilon along the geometric normal (on the side dir points away from).
func Spawn(p, normal, dir mgl32.Vec3, bounceNum int) Ray {
	sign := float32(1)
	if normal.Dot(dir) < 0 {
		sign = -1
	}
	origin := p.Add(normal.Mul(sign * epsilonOffset))
	return Ray{Origin: origin, Dir: dir, TNear: 0, TFar: float32(1e30), BounceNum: bounceNum}
}

// SurfaceRecord describes a ray-primitive intersection returned by
// TraceableScene.Intersect: hit distance, position, shading and geometric
// normals, UV, and the primitive hit (for Material/Light lookup).
type SurfaceRecord struct {
	T         float32
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	GeoNormal mgl32.Vec3
	UV        mgl32.Vec2
	Primitive Primitive
}

// Frame is an orthonormal right-handed local frame with +Z along the
// surface normal, used to express SurfaceScatterEvent directions locally.
type Frame struct {
	Tangent, Bitangent, Normal mgl32.Vec3
}

// NewFrame builds an orthonormal frame from a unit normal using the
// Duff et al. branchless construction.
func NewFrame(normal mgl32.Vec3) Frame {
	sign := float32(1)
	if normal.Z() < 0 {
		sign = -1
	}
	a := -1 / (sign + normal.Z())
	b := normal.X() * normal.Y() * a
	tangent := mgl32.Vec3{1 + sign*normal.X()*normal.X()*a, sign * b, -sign * normal.X()}
	bitangent := mgl32.Vec3{b, sign + normal.Y()*normal.Y()*a, -normal.Y()}
	return Frame{Tangent: tangent, Bitangent: bitangent, Normal: normal}
}

// ToLocal expresses a world-space direction in the frame's local basis.
func (f Frame) ToLocal(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v.Dot(f.Tangent), v.Dot(f.Bitangent), v.Dot(f.Normal)}
}

// ToWorld expresses a local-space direction in world space.
func (f Frame) ToWorld(v mgl32.Vec3) mgl32.Vec3 {
	return f.Tangent.Mul(v.X()).Add(f.Bitangent.Mul(v.Y())).Add(f.Normal.Mul(v.Z()))
}

// LobeFlags tags which BSDF lobes a sample requested or hit.
type LobeFlags uint32

const (
	LobeDiffuse     LobeFlags = 1 << iota
	LobeGlossy
	LobeSpecular
	LobeTransmission
	LobeReflection
)

// IsDirac reports whether the flags describe a Dirac-delta (specular) lobe.
func (f LobeFlags) IsDirac() bool { return f&LobeSpecular != 0 && f&(LobeDiffuse|LobeGlossy) == 0 }

// SurfaceScatterEvent carries a single BSDF sample or evaluation: incident
// direction in local frame, sampled outgoing direction, its pdf, the
// evaluated throughput (f * |cosTheta|/pdf or raw f depending on caller),
// the lobes requested, and the lobes actually sampled.
type SurfaceScatterEvent struct {
	Frame          Frame
	Wi             mgl32.Vec3 // local
	Wo             mgl32.Vec3 // local
	Pdf            float32
	Weight         mgl32.Vec3
	RequestedLobes LobeFlags
	SampledLobes   LobeFlags
}

// MediumState tracks a path's per-medium bookkeeping across bounces: which
// spectral component is currently authoritative for MIS, whether this is the
// path's first scattering event in the medium, and a bounce counter.
type MediumState struct {
	Component    int
	FirstScatter bool
	BounceNum    int
}

// MediumSample is the result of sampling a distance along a ray through a
// medium: the resulting position, sampled distance, a scatter/transmission
// weight, its pdf, whether the ray exited the medium before scattering, and
// the phase function to consult if it didn't.
type MediumSample struct {
	Position mgl32.Vec3
	Distance float32
	Weight   mgl32.Vec3
	Pdf      float32
	Exited   bool
	Phase    PhaseFunction
}

// PhaseFunction evaluates and samples a volumetric scattering phase function.
type PhaseFunction interface {
	Eval(wi, wo mgl32.Vec3) float32
	Sample(wi mgl32.Vec3, u mgl32.Vec2) (wo mgl32.Vec3, pdf float32)
}

// Medium is a participating medium: it samples a free-flight distance along
// a ray and reports the phase function governing in-scattering.
type Medium interface {
	SampleDistance(ray Ray, state *MediumState, u1 float32, u2 mgl32.Vec2) MediumSample
	Transmittance(ray Ray, dist float32) mgl32.Vec3
}

// Material is the BSDF contract (named Material, not BSDF, after the
// vocabulary this core's collaborators use for the same concept).
type Material interface {
	// Sample draws an outgoing direction given the incident one, returning
	// the populated event and whether sampling succeeded.
	Sample(event *SurfaceScatterEvent, u1 float32, u2 mgl32.Vec2) bool
	// Eval evaluates f(wi, wo) for the given event's already-set Wi/Wo.
	Eval(event SurfaceScatterEvent) mgl32.Vec3
	// Pdf evaluates the solid-angle sampling density for wo given wi.
	Pdf(event SurfaceScatterEvent) float32
	// IsDirac reports whether every lobe of this material is a Dirac delta.
	IsDirac() bool
}

// Light is an emitter: it can be sampled for direct lighting from a point,
// and it can report emitted radiance when hit directly along a ray.
type Light interface {
	// SampleDirect draws a point on the light visible-ish from p, returning
	// the direction to it, distance, pdf (solid angle measure) and radiance.
	SampleDirect(p mgl32.Vec3, u mgl32.Vec2) (wi mgl32.Vec3, dist float32, pdf float32, radiance mgl32.Vec3)
	// Emission returns the radiance emitted toward -wi from a hit on the
	// light's surface with geometric normal n, plus the area-measure pdf
	// of having sampled that point via SampleDirect.
	Emission(hitPoint, n, wi mgl32.Vec3) (radiance mgl32.Vec3, pdfArea float32)
	// IsInfinite reports whether this is an environment-style emitter with
	// no finite position (affects BDPT's 1/r^2 handling).
	IsInfinite() bool
	// Power is an approximate total emitted power, used to build light
	// selection distributions.
	Power() float32
}

// Invertible is an optional Material capability used by reversible-jump
// MLT's path inversion: given a previously sampled scatter event, it
// reconstructs the uniform numbers that would regenerate it. A Material
// that does not implement Invertible is treated as non-invertible under
// inversion (the inversion attempt fails at that vertex).
type Invertible interface {
	InvertSample(event SurfaceScatterEvent) (u1 float32, u2 mgl32.Vec2, ok bool)
}

// Primitive is a hit-table scene object: its material, the light it emits
// as (nil if non-emissive), and the medium bounded by it on the inside
// (nil if not bounding a medium).
type Primitive interface {
	Material() Material
	Light() Light
	InsideMedium() Medium
}

// Camera is a sensor: it generates primary rays for a pixel sample and can
// be sampled for direct connection from a light-tracer or BDPT vertex.
type Camera interface {
	GenerateRay(pixelX, pixelY int, u mgl32.Vec2) Ray
	// SampleDirect attempts to connect p to the camera's aperture, returning
	// the pixel it would land on, direction, distance, pdf and importance.
	SampleDirect(p mgl32.Vec3) (px, py int, wi mgl32.Vec3, dist float32, pdf float32, importance mgl32.Vec3, ok bool)
	Resolution() (w, h int)
}

// TraceableScene is the frozen, read-only-after-prepare scene contract the
// core traces against.
type TraceableScene interface {
	Intersect(ray Ray) (SurfaceRecord, bool)
	Occluded(ray Ray) bool
	Cam() Camera
	Lights() []Light
	// LightPrimitive maps a Light back to the Primitive it is attached to,
	// needed when a BDPT emitter vertex must report a Primitive's medium.
	LightPrimitive(l Light) Primitive
}
