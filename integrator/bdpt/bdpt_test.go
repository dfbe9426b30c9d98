package bdpt

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/pathvertex"
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene/testscene"
	"github.com/emberrender/ember/tracer"
)

func emptySceneTracer() *tracer.Tracer {
	cam := testscene.NewPinholeCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 1.0, 64, 64)
	sc := testscene.NewBruteForceScene(cam, nil, nil)
	return tracer.New(sc, tracer.Config{MinBounces: 0, MaxBounces: 4, RRDepth: 2})
}

func TestEmptySceneReturnsBlack(t *testing.T) {
	tr := emptySceneTracer()
	bd := New(tr)
	s := sampler.NewUniformSampler(1)
	s.StartPath(0, 0)

	cam := tr.Scene.Cam()
	ray := cam.GenerateRay(32, 32, mgl32.Vec2{0.5, 0.5})
	radiance := bd.TraceSample(ray, s)

	if radiance != (mgl32.Vec3{}) {
		t.Fatalf("expected black on empty scene, got %v", radiance)
	}
}

func TestImagePyramidAccumulatesPerTechnique(t *testing.T) {
	p := NewImagePyramid(8)
	p.add(1, 2, mgl32.Vec3{1, 0, 0})
	p.add(1, 2, mgl32.Vec3{1, 0, 0})
	p.add(2, 1, mgl32.Vec3{0, 1, 0})

	if got := p.Buckets[[2]int{1, 2}]; got != (mgl32.Vec3{2, 0, 0}) {
		t.Fatalf("expected accumulated bucket {2,0,0}, got %v", got)
	}
	if got := p.Buckets[[2]int{2, 1}]; got != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("expected bucket {0,1,0}, got %v", got)
	}
}

func TestRatioAlongPathZeroWhenPdfForwardZero(t *testing.T) {
	path := pathvertex.NewLightPath(4)
	path.Seed(pathvertex.Vertex{Kind: pathvertex.KindEmitter, Position: mgl32.Vec3{0, 0, 0}, PdfForward: 1})
	next := pathvertex.Vertex{Kind: pathvertex.KindSurface, Position: mgl32.Vec3{1, 0, 0}, PdfForward: 0}
	path.Extend(next, pathvertex.NewEdge(*path.Tip(), next, 1, 1))

	if r := ratioAlongPath(path, 2); r != 0 {
		t.Fatalf("expected 0 ratio with zero forward pdf, got %f", r)
	}
}
