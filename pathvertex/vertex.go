// Package pathvertex implements the bidirectional path-tracer's vertex and
// edge algebra: a tagged-variant vertex type, an edge with a reverse
// operation, and the fixed-capacity LightPath that strings them together.
package pathvertex

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/scene"
)

// Kind tags which variant of the vertex union is populated.
type Kind int

const (
	KindCamera Kind = iota
	KindEmitter
	KindSurface
	KindVolume
)

// Vertex is one node of a light-transport path. Exactly the fields named by
// the vertex data model are present regardless of Kind; Kind-specific
// lookups (the originating Primitive, Light, or Medium) come from the
// SurfaceRecord/Light cached alongside it.
type Vertex struct {
	Kind Kind

	Position      mgl32.Vec3
	GeometricNorm mgl32.Vec3

	// How this vertex was generated: for Camera/Emitter roots, Wo is the
	// sampled initial direction; for Surface/Volume, Event/MediumSample is
	// populated instead.
	Wo    mgl32.Vec3
	Event scene.SurfaceScatterEvent // valid when Kind == KindSurface

	Throughput mgl32.Vec3

	PdfForward  float32 // density of sampling this vertex from the previous one, toward the tip
	PdfBackward float32 // density of sampling this vertex from the next one, toward the root

	Connectable bool // false for Dirac-delta vertices (specular surfaces, pinhole camera/emitter)
	IsInfinite  bool // true for environment-light / directional-camera vertices with no finite position
	OnSurface   bool

	Material  scene.Material  // non-nil at Kind == KindSurface
	Light     scene.Light     // non-nil at Kind == KindEmitter
	Camera    scene.Camera    // non-nil at Kind == KindCamera
	Medium    scene.Medium    // non-nil at Kind == KindVolume
	Phase     scene.PhaseFunction
}

// CameraRoot builds the Kind == KindCamera root vertex for a generated
// primary ray.
func CameraRoot(cam scene.Camera, origin mgl32.Vec3, pdfForward float32) Vertex {
	return Vertex{
		Kind:        KindCamera,
		Position:    origin,
		Throughput:  mgl32.Vec3{1, 1, 1},
		PdfForward:  pdfForward,
		Connectable: false, // pinhole: Dirac aperture
		Camera:      cam,
	}
}

// EmitterRoot builds the Kind == KindEmitter root vertex for a sampled
// point on a light.
func EmitterRoot(light scene.Light, position, normal mgl32.Vec3, throughput mgl32.Vec3, pdfForward float32, isInfinite bool) Vertex {
	return Vertex{
		Kind:        KindEmitter,
		Position:    position,
		GeometricNorm: normal,
		Throughput:  throughput,
		PdfForward:  pdfForward,
		Connectable: true,
		IsInfinite:  isInfinite,
		OnSurface:   !isInfinite,
		Light:       light,
	}
}

// SurfaceVertex builds a Kind == KindSurface vertex from a completed
// intersection and scatter event.
func SurfaceVertex(rec scene.SurfaceRecord, mat scene.Material, event scene.SurfaceScatterEvent, throughput mgl32.Vec3, pdfForward float32) Vertex {
	return Vertex{
		Kind:          KindSurface,
		Position:      rec.Position,
		GeometricNorm: rec.GeoNormal,
		Event:         event,
		Throughput:    throughput,
		PdfForward:    pdfForward,
		Connectable:   !mat.IsDirac(),
		OnSurface:     true,
		Material:      mat,
	}
}

// VolumeVertex builds a Kind == KindVolume vertex from a medium sample.
func VolumeVertex(position mgl32.Vec3, medium scene.Medium, phase scene.PhaseFunction, throughput mgl32.Vec3, pdfForward float32) Vertex {
	return Vertex{
		Kind:        KindVolume,
		Position:    position,
		Throughput:  throughput,
		PdfForward:  pdfForward,
		Connectable: true,
		Medium:      medium,
		Phase:       phase,
	}
}

// Edge connects two adjacent vertices: direction (a->b), length, length²,
// and the transmittance-induced forward/backward densities between them.
type Edge struct {
	Dir        mgl32.Vec3
	Length     float32
	LengthSq   float32
	PdfForward float32 // density, in the a->b direction, measured at b
	PdfBackward float32 // density, in the b->a direction, measured at a
}

// NewEdge builds the edge from a to b.
func NewEdge(a, b Vertex, pdfForward, pdfBackward float32) Edge {
	delta := b.Position.Sub(a.Position)
	lenSq := delta.Dot(delta)
	length := float32(math.Sqrt(float64(lenSq)))
	dir := delta
	if length > 0 {
		dir = delta.Mul(1 / length)
	}
	return Edge{Dir: dir, Length: length, LengthSq: lenSq, PdfForward: pdfForward, PdfBackward: pdfBackward}
}

// Reverse swaps the forward/backward pdfs and flips the direction, giving
// the edge as seen from b looking back toward a.
func (e Edge) Reverse() Edge {
	return Edge{Dir: e.Dir.Mul(-1), Length: e.Length, LengthSq: e.LengthSq, PdfForward: e.PdfBackward, PdfBackward: e.PdfForward}
}

// ToAreaMeasure converts a solid-angle-measure density at vertex `at`,
// sampled from `from`, into an area-measure density by multiplying the
// |cosTheta|/r² geometry term. toNormal is the geometric normal at `at`,
// used only when `at` is on a surface.
func ToAreaMeasure(pdfSolidAngle float32, from, at Vertex, toNormal mgl32.Vec3, atOnSurface bool) float32 {
	if at.IsInfinite {
		return pdfSolidAngle
	}
	delta := at.Position.Sub(from.Position)
	distSq := delta.Dot(delta)
	if distSq < 1e-12 {
		return 0
	}
	dir := delta.Mul(1 / float32(math.Sqrt(float64(distSq))))
	cosAt := float32(1)
	if atOnSurface {
		cosAt = absf(toNormal.Dot(dir))
	}
	return pdfSolidAngle * cosAt / distSq
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// InvGeometryFactor re-expresses a Dirac-adjacent area-measure density in
// projected solid-angle measure by dividing out the |cosTheta|/r² term that
// ToAreaMeasure multiplied in — used to keep MIS ratios meaningful across a
// Dirac vertex, where area measure is degenerate.
func InvGeometryFactor(pdfArea float32, from, at Vertex, atNormal mgl32.Vec3, atOnSurface bool) float32 {
	if at.IsInfinite {
		return pdfArea
	}
	delta := at.Position.Sub(from.Position)
	distSq := delta.Dot(delta)
	if distSq < 1e-12 {
		return 0
	}
	dir := delta.Mul(1 / float32(math.Sqrt(float64(distSq))))
	cosAt := float32(1)
	if atOnSurface {
		cosAt = absf(atNormal.Dot(dir))
	}
	if cosAt < 1e-7 {
		return 0
	}
	return pdfArea * distSq / cosAt
}
