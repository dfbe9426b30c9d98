package pathvertex

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLightPathCapacityMatchesMaxBouncesPlusFour(t *testing.T) {
	p := NewLightPath(4)
	root := Vertex{Kind: KindCamera, Throughput: mgl32.Vec3{1, 1, 1}}
	p.Seed(root)
	for i := 0; i < 10; i++ {
		v := Vertex{Kind: KindSurface, Position: mgl32.Vec3{float32(i), 0, 0}}
		e := NewEdge(*p.Tip(), v, 1, 1)
		if !p.Extend(v, e) {
			break
		}
	}
	if p.Len() != 8 {
		t.Fatalf("expected path capped at maxBounces+4=8, got %d", p.Len())
	}
	if !p.Full() {
		t.Fatalf("expected path to report full at capacity")
	}
}

func TestLightPathClearResetsWithoutReallocating(t *testing.T) {
	p := NewLightPath(4)
	p.Seed(Vertex{Kind: KindEmitter})
	p.Extend(Vertex{Kind: KindSurface}, Edge{})
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("expected 0 vertices after Clear, got %d", p.Len())
	}
}

func TestEdgeReverseSwapsPdfsAndFlipsDirection(t *testing.T) {
	e := Edge{Dir: mgl32.Vec3{1, 0, 0}, Length: 2, LengthSq: 4, PdfForward: 0.5, PdfBackward: 0.25}
	r := e.Reverse()
	if r.PdfForward != 0.25 || r.PdfBackward != 0.5 {
		t.Fatalf("expected swapped pdfs, got %+v", r)
	}
	if r.Dir != (mgl32.Vec3{-1, 0, 0}) {
		t.Fatalf("expected flipped direction, got %v", r.Dir)
	}
}

func TestCollapseForwardEventFoldsPdfsIntoEdge(t *testing.T) {
	p := NewLightPath(8)
	p.Seed(Vertex{Kind: KindEmitter, Throughput: mgl32.Vec3{1, 1, 1}})
	forward := Vertex{Kind: KindSurface, PdfForward: 0.5, PdfBackward: 0.5}
	p.Extend(forward, Edge{PdfForward: 1, PdfBackward: 1, LengthSq: 1})

	p.CollapseForwardEvent()

	if p.Len() != 1 {
		t.Fatalf("expected forward-event vertex collapsed away, got len=%d", p.Len())
	}
}
