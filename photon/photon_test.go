package photon

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func makePhotons(n int) []Photon {
	photons := make([]Photon, n)
	for i := range photons {
		photons[i] = Photon{
			Position: mgl32.Vec3{float32(i % 7), float32((i * 3) % 11), float32((i * 5) % 13)},
			Power:    mgl32.Vec3{1, 1, 1},
		}
	}
	return photons
}

func TestKDTreeSplitInvariant(t *testing.T) {
	photons := makePhotons(200)
	tree := BuildKDTree(photons, nil)

	var walk func(i int)
	walk = func(i int) {
		p := tree.Photons[i]
		dim := unpackSplitDim(p.kd)
		nodeVal := axisOf(dim)(p)

		if unpackHasLeft(p.kd) {
			checkSubtreeBound(t, tree, i+1, dim, nodeVal, true)
			walk(i + 1)
		}
		if unpackHasRight(p.kd) {
			right := int(unpackChildIdx(p.kd))
			checkSubtreeBound(t, tree, right, dim, nodeVal, false)
			walk(right)
		}
	}
	walk(0)
}

func checkSubtreeBound(t *testing.T, tree *KDTree, root int, dim int, nodeVal float32, mustBeLE bool) {
	t.Helper()
	var visit func(i int)
	visit = func(i int) {
		v := axisOf(dim)(tree.Photons[i])
		if mustBeLE && v > nodeVal+1e-5 {
			t.Fatalf("left subtree value %f exceeds split value %f on axis %d", v, nodeVal, dim)
		}
		if !mustBeLE && v < nodeVal-1e-5 {
			t.Fatalf("right subtree value %f below split value %f on axis %d", v, nodeVal, dim)
		}
		p := tree.Photons[i]
		if unpackHasLeft(p.kd) {
			visit(i + 1)
		}
		if unpackHasRight(p.kd) {
			visit(int(unpackChildIdx(p.kd)))
		}
	}
	visit(root)
}

func TestKNNReturnsRequestedCount(t *testing.T) {
	photons := makePhotons(500)
	tree := BuildKDTree(photons, nil)

	indices, maxDistSq := tree.KNN([3]float32{3, 3, 3}, 16)
	if len(indices) != 16 {
		t.Fatalf("expected 16 neighbors, got %d", len(indices))
	}
	if maxDistSq <= 0 {
		t.Fatalf("expected positive max distance, got %f", maxDistSq)
	}
}

func TestCompactProducesContiguousPrefix(t *testing.T) {
	total := 30
	photons := makePhotons(total)
	ranges := NewRanges(total, 3)

	// Simulate each worker only partially filling its range.
	for i := range ranges {
		r := &ranges[i]
		budget := r.End - r.Start
		r.Next = r.Start + budget/2
	}

	stored := Compact(photons, ranges)
	expected := 0
	for _, r := range ranges {
		expected += int(r.Stored())
	}
	if stored != expected {
		t.Fatalf("expected %d compacted photons, got %d", expected, stored)
	}
}

func TestVolumeHierarchyBoundsContainChildren(t *testing.T) {
	volPhotons := make([]VolumePhoton, 100)
	for i := range volPhotons {
		volPhotons[i].Position = mgl32.Vec3{float32(i % 5), float32((i * 2) % 7), float32((i * 3) % 9)}
	}
	vt := BuildVolumeTree(volPhotons, 0.01)

	var check func(i int) (min, max mgl32.Vec3)
	check = func(i int) (mgl32.Vec3, mgl32.Vec3) {
		p := vt.Photons[i]
		min, max := p.BoundMin, p.BoundMax
		if unpackHasLeft(p.kd) {
			cMin, cMax := check(i + 1)
			assertContains(t, min, max, cMin, cMax)
		}
		if unpackHasRight(p.kd) {
			cMin, cMax := check(int(unpackChildIdx(p.kd)))
			assertContains(t, min, max, cMin, cMax)
		}
		return min, max
	}
	check(0)
}

func assertContains(t *testing.T, parentMin, parentMax, childMin, childMax mgl32.Vec3) {
	t.Helper()
	for a := 0; a < 3; a++ {
		if childMin[a] < parentMin[a]-1e-5 || childMax[a] > parentMax[a]+1e-5 {
			t.Fatalf("parent bound [%v,%v] does not contain child bound [%v,%v] on axis %d", parentMin, parentMax, childMin, childMax, a)
		}
	}
}
