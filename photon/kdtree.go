package photon

import (
	"sort"

	"github.com/emberrender/ember/internal/workerpool"
)

// forkThreshold is the subtree size above which Build hands the subtree's
// construction off to the thread pool rather than recursing inline.
const forkThreshold = 100_000

// KDTree is a recursively median-split, in-place k-d tree over a surface
// photon array. Each node's packed metadata (in Photon.kd) records whether
// it has a left/right child, the split dimension, and — when present — the
// array index of the right subtree's root; the left subtree, when present,
// always begins at the node's own index + 1.
type KDTree struct {
	Photons []Photon
}

// BuildKDTree rearranges photons in place into a balanced k-d tree. Large
// subtrees are forked to pool; pool may be nil to force single-threaded
// construction.
func BuildKDTree(photons []Photon, pool *workerpool.Pool) *KDTree {
	t := &KDTree{Photons: photons}
	if len(photons) > 0 {
		t.build(0, len(photons), pool)
	}
	return t
}

func axisOf(i int) func(Photon) float32 {
	switch i {
	case 0:
		return func(p Photon) float32 { return p.Position.X() }
	case 1:
		return func(p Photon) float32 { return p.Position.Y() }
	default:
		return func(p Photon) float32 { return p.Position.Z() }
	}
}

func longestAxis(photons []Photon) int {
	inf := float32(1e30)
	minV := [3]float32{inf, inf, inf}
	maxV := [3]float32{-inf, -inf, -inf}
	for _, p := range photons {
		for a := 0; a < 3; a++ {
			v := axisOf(a)(p)
			if v < minV[a] {
				minV[a] = v
			}
			if v > maxV[a] {
				maxV[a] = v
			}
		}
	}
	best, bestExtent := 0, float32(-1)
	for a := 0; a < 3; a++ {
		extent := maxV[a] - minV[a]
		if extent > bestExtent {
			bestExtent, best = extent, a
		}
	}
	return best
}

// build recursively partitions photons[lo:hi]: the median along the
// subtree's longest axis becomes the node at index lo, the rest split into
// a left subtree at [lo+1, lo+1+leftCount) and a right subtree immediately
// following it.
func (t *KDTree) build(lo, hi int, pool *workerpool.Pool) {
	n := hi - lo
	if n <= 0 {
		return
	}
	if n == 1 {
		t.Photons[lo].kd = packKD(false, false, 0, 0)
		return
	}

	axis := longestAxis(t.Photons[lo:hi])
	get := axisOf(axis)
	sub := t.Photons[lo:hi]
	sort.Slice(sub, func(i, j int) bool { return get(sub[i]) < get(sub[j]) })

	mid := n / 2 // index within sub of the median
	sub[0], sub[mid] = sub[mid], sub[0]

	leftCount := mid
	rightCount := n - mid - 1
	leftStart := lo + 1
	rightStart := leftStart + leftCount

	t.Photons[lo].kd = packKD(leftCount > 0, rightCount > 0, axis, uint32(rightStart))

	runSide := func(start, count int) {
		if count <= 0 {
			return
		}
		if count > forkThreshold && pool != nil {
			pool.NewTaskGroup(1, func(int) error {
				t.build(start, start+count, pool)
				return nil
			}).Wait()
		} else {
			t.build(start, start+count, pool)
		}
	}
	runSide(leftStart, leftCount)
	runSide(rightStart, rightCount)
}

// candidate is one entry of the bounded max-heap KNN maintains, keyed by
// squared distance so the worst-of-k candidate sits at the heap root.
type candidate struct {
	distSq float32
	index  int
}

// KNN walks the tree from node 0, collecting the k photons nearest to p,
// returning their indices and the squared distance to the k-th nearest
// (the gather radius² for the caller's density estimate). Uses a simple
// array-backed max-heap rather than container/heap to avoid per-query
// interface-method call overhead in the hot gather loop.
func (t *KDTree) KNN(p [3]float32, k int) (indices []int, maxDistSq float32) {
	if len(t.Photons) == 0 || k <= 0 {
		return nil, 0
	}
	heap := make([]candidate, 0, k)

	var visit func(i int)
	visit = func(i int) {
		ph := t.Photons[i]
		pos := ph.Position
		dx, dy, dz := pos.X()-p[0], pos.Y()-p[1], pos.Z()-p[2]
		distSq := dx*dx + dy*dy + dz*dz

		if len(heap) < k {
			heap = heapPush(heap, candidate{distSq, i})
		} else if distSq < heap[0].distSq {
			heap = heapReplaceRoot(heap, candidate{distSq, i})
		}

		splitDim := unpackSplitDim(ph.kd)
		nodeVal := axisOf(splitDim)(ph)
		var queryVal float32
		switch splitDim {
		case 0:
			queryVal = p[0]
		case 1:
			queryVal = p[1]
		default:
			queryVal = p[2]
		}
		diff := queryVal - nodeVal
		hasLeft, hasRight := unpackHasLeft(ph.kd), unpackHasRight(ph.kd)
		rightIdx := int(unpackChildIdx(ph.kd))
		leftIdx := i + 1

		near, far := leftIdx, rightIdx
		nearOK, farOK := hasLeft, hasRight
		if diff > 0 {
			near, far = rightIdx, leftIdx
			nearOK, farOK = hasRight, hasLeft
		}
		if nearOK {
			visit(near)
		}
		worst := float32(1e30)
		if len(heap) == k {
			worst = heap[0].distSq
		}
		if farOK && (len(heap) < k || diff*diff < worst) {
			visit(far)
		}
	}
	visit(0)

	indices = make([]int, len(heap))
	for i, c := range heap {
		indices[i] = c.index
	}
	if len(heap) > 0 {
		maxDistSq = heap[0].distSq
	}
	return indices, maxDistSq
}

// heapPush/heapReplaceRoot implement a tiny binary max-heap on []candidate
// without pulling in container/heap's interface-call overhead.
func heapPush(h []candidate, c candidate) []candidate {
	h = append(h, c)
	i := len(h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h[parent].distSq >= h[i].distSq {
			break
		}
		h[parent], h[i] = h[i], h[parent]
		i = parent
	}
	return h
}

func heapReplaceRoot(h []candidate, c candidate) []candidate {
	h[0] = c
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		largest := i
		if left < len(h) && h[left].distSq > h[largest].distSq {
			largest = left
		}
		if right < len(h) && h[right].distSq > h[largest].distSq {
			largest = right
		}
		if largest == i {
			break
		}
		h[i], h[largest] = h[largest], h[i]
		i = largest
	}
	return h
}
