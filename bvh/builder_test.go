package bvh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuildTwoItemsSplit(t *testing.T) {
	items := []Item{
		{Min: mgl32.Vec3{-100, -1, -1}, Max: mgl32.Vec3{-98, 1, 1}, Index: 0},
		{Min: mgl32.Vec3{100, -1, -1}, Max: mgl32.Vec3{102, 1, 1}, Index: 1},
	}

	nodes := (&Builder{}).Build(items)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes (root + 2 leaves), got %d", len(nodes))
	}

	root := nodes[0]
	if root.Min.X() > -100 || root.Max.X() < 100 {
		t.Errorf("root AABB %v..%v does not encompass both items", root.Min, root.Max)
	}
	if root.Left < 0 || root.Right < 0 {
		t.Fatalf("root should be an interior node, got Left=%d Right=%d", root.Left, root.Right)
	}
	if !nodes[root.Left].isLeaf() || !nodes[root.Right].isLeaf() {
		t.Fatalf("both children of a two-item tree must be leaves")
	}
}

func TestBuildSingleItemIsLeaf(t *testing.T) {
	items := []Item{{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}, Index: 7}}
	nodes := (&Builder{}).Build(items)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if !nodes[0].isLeaf() || nodes[0].LeafIndex != 7 {
		t.Fatalf("expected leaf with index 7, got %+v", nodes[0])
	}
}

func TestVisitPrunesNonIntersectingSubtrees(t *testing.T) {
	items := []Item{
		{Min: mgl32.Vec3{-10, -1, -1}, Max: mgl32.Vec3{-9, 1, 1}, Index: 0},
		{Min: mgl32.Vec3{9, -1, -1}, Max: mgl32.Vec3{10, 1, 1}, Index: 1},
	}
	nodes := (&Builder{}).Build(items)

	var visited []int32
	// Ray travels along +X near the Index=1 box only.
	Visit(nodes, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, 0, 1000, func(leafIndex int32) bool {
		visited = append(visited, leafIndex)
		return true
	})

	if len(visited) != 1 || visited[0] != 1 {
		t.Fatalf("expected only leaf 1 to be visited, got %v", visited)
	}
}

func TestEmptyBuildReturnsDegenerateRoot(t *testing.T) {
	nodes := (&Builder{}).Build(nil)
	if len(nodes) != 1 {
		t.Fatalf("expected a single degenerate root, got %d nodes", len(nodes))
	}
	if nodes[0].LeafCount != 0 {
		t.Fatalf("expected degenerate non-leaf root for empty input")
	}
}
