package pathvertex

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
	"github.com/emberrender/ember/scene/testscene"
)

func TestInvertRoundTripsLambertianSample(t *testing.T) {
	mat := &testscene.LambertianMaterial{Albedo: mgl32.Vec3{1, 1, 1}}
	frame := scene.NewFrame(mgl32.Vec3{0, 0, 1})
	event := scene.SurfaceScatterEvent{Frame: frame, Wi: mgl32.Vec3{0, 0, 1}}

	u1, u2 := float32(0.3), float32(0.7)
	if ok := mat.Sample(&event, 0, mgl32.Vec2{u1, u2}); !ok {
		t.Fatalf("expected sample to succeed")
	}

	path := NewLightPath(4)
	path.Seed(Vertex{Kind: KindCamera})
	surf := Vertex{Kind: KindSurface, Material: mat, Event: event}
	path.Extend(surf, Edge{})

	w := sampler.NewWritableSampler(1, sampler.MutationKelemen)
	w.StartPath(0, 0)
	if ok := Invert(path, w, 0); !ok {
		t.Fatalf("expected invertible Lambertian vertex to succeed")
	}

	w.Seek(0)
	_ = w.Next1D()
	a, b := w.Next2D()
	regenEvent := event
	mat.Sample(&regenEvent, 0, mgl32.Vec2{a, b})

	if diff := regenEvent.Wo.Sub(event.Wo); diff.Dot(diff) > 1e-4 {
		t.Fatalf("expected inverted sample to regenerate the same Wo, got %v want %v", regenEvent.Wo, event.Wo)
	}
}

func TestInvertFailsOnDiracMaterial(t *testing.T) {
	mat := &diracStub{}
	path := NewLightPath(4)
	path.Seed(Vertex{Kind: KindCamera})
	path.Extend(Vertex{Kind: KindSurface, Material: mat}, Edge{})

	w := sampler.NewWritableSampler(1, sampler.MutationKelemen)
	w.StartPath(0, 0)
	if Invert(path, w, 0) {
		t.Fatalf("expected inversion through a Dirac material to fail")
	}
}

type diracStub struct{}

func (d *diracStub) Sample(*scene.SurfaceScatterEvent, float32, mgl32.Vec2) bool { return true }
func (d *diracStub) Eval(scene.SurfaceScatterEvent) mgl32.Vec3                   { return mgl32.Vec3{} }
func (d *diracStub) Pdf(scene.SurfaceScatterEvent) float32                      { return 0 }
func (d *diracStub) IsDirac() bool                                              { return true }
