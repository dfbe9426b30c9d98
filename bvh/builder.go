// Package bvh builds a bounding-volume hierarchy over axis-aligned boxes.
//
// It backs the photon-map integrator's beam and photon-plane acceleration:
// each leaf holds one beam/plane primitive, and a ray query descends only
// into nodes whose AABB intersects the ray's extent.
package bvh

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is one node of the hierarchy. Interior nodes have Left/Right >= 0 and
// LeafCount == 0; leaves have Left == Right == -1 and LeafCount == 1.
type Node struct {
	Min, Max  mgl32.Vec3
	Left      int32
	Right     int32
	LeafIndex int32 // index into the original items slice, valid only at leaves
	LeafCount int32
}

func (n *Node) isLeaf() bool { return n.LeafCount > 0 }

// Item is one bounded primitive handed to Build; Index is the caller's own
// identifier for the primitive (e.g. a beam or photon-plane slot).
type Item struct {
	Min, Max mgl32.Vec3
	Index    int32
}

func centroid(it Item) mgl32.Vec3 {
	return it.Min.Add(it.Max).Mul(0.5)
}

// Builder constructs a BVH over a set of bounded items via a recursive
// median split on the longest axis of the current subtree's bounds, the
// same splitting rule the photon k-d tree's build phase uses, so beam
// and surface acceleration structures share one mental model.
type Builder struct{}

// Build returns the flattened node array; node 0 is the root. Build with no
// items returns a single degenerate root covering an empty box.
func (b *Builder) Build(items []Item) []Node {
	if len(items) == 0 {
		return []Node{{Left: -1, Right: -1, LeafIndex: -1}}
	}
	cp := make([]Item, len(items))
	copy(cp, items)

	nodes := make([]Node, 0, 2*len(items))
	b.recurse(cp, &nodes)
	return nodes
}

func (b *Builder) recurse(items []Item, nodes *[]Node) int32 {
	idx := int32(len(*nodes))
	*nodes = append(*nodes, Node{Left: -1, Right: -1, LeafIndex: -1})

	inf := float32(1e30)
	minB := mgl32.Vec3{inf, inf, inf}
	maxB := mgl32.Vec3{-inf, -inf, -inf}
	for _, it := range items {
		minB = componentMin(minB, it.Min)
		maxB = componentMax(maxB, it.Max)
	}
	(*nodes)[idx].Min = minB
	(*nodes)[idx].Max = maxB

	if len(items) == 1 {
		(*nodes)[idx].LeafIndex = items[0].Index
		(*nodes)[idx].LeafCount = 1
		return idx
	}

	extent := maxB.Sub(minB)
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}

	sort.Slice(items, func(i, j int) bool {
		return centroid(items[i])[axis] < centroid(items[j])[axis]
	})

	mid := len(items) / 2
	left := b.recurse(items[:mid], nodes)
	// recurse into the left subtree may reallocate *nodes; re-derive idx-relative writes after.
	right := b.recurse(items[mid:], nodes)
	(*nodes)[idx].Left = left
	(*nodes)[idx].Right = right
	return idx
}

func componentMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min32(a[0], b[0]), min32(a[1], b[1]), min32(a[2], b[2])}
}

func componentMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max32(a[0], b[0]), max32(a[1], b[1]), max32(a[2], b[2])}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// IntersectsRay reports whether the node's AABB overlaps [tMin, tMax] along
// the ray; used to prune descent during beam/photon-plane queries.
func (n *Node) IntersectsRay(origin, invDir mgl32.Vec3, tMin, tMax float32) bool {
	for axis := 0; axis < 3; axis++ {
		t0 := (n.Min[axis] - origin[axis]) * invDir[axis]
		t1 := (n.Max[axis] - origin[axis]) * invDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return false
		}
	}
	return true
}

// Visit walks nodes whose bounds intersect the ray's [tMin, tMax] extent,
// invoking fn at each leaf with its LeafIndex. Stops early if fn returns false.
func Visit(nodes []Node, origin, dir mgl32.Vec3, tMin, tMax float32, fn func(leafIndex int32) bool) {
	if len(nodes) == 0 {
		return
	}
	invDir := mgl32.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]}
	var walk func(i int32) bool
	walk = func(i int32) bool {
		if i < 0 {
			return true
		}
		n := &nodes[i]
		if !n.IntersectsRay(origin, invDir, tMin, tMax) {
			return true
		}
		if n.isLeaf() {
			return fn(n.LeafIndex)
		}
		if !walk(n.Left) {
			return false
		}
		return walk(n.Right)
	}
	walk(0)
}
