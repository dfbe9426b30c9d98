package pathvertex

// LightPath is a fixed-capacity sequence of vertices and the edges between
// them, capacity = maxBounces+4 so it never allocates on the hot path. It is
// reused across samples via Clear rather than reallocated.
type LightPath struct {
	vertices []Vertex
	edges    []Edge // edges[i] connects vertices[i] and vertices[i+1]

	// preCollapseIndex[i] is the index vertices[i] held before forward
	// scattering events (transparency, index-matched interfaces) were
	// collapsed out of the path by CollapseForwardEvent.
	preCollapseIndex []int

	capacity int
}

// NewLightPath allocates the backing storage once, sized to capacity.
func NewLightPath(maxBounces int) *LightPath {
	capacity := maxBounces + 4
	return &LightPath{
		vertices:         make([]Vertex, 0, capacity),
		edges:            make([]Edge, 0, capacity),
		preCollapseIndex: make([]int, 0, capacity),
		capacity:         capacity,
	}
}

// Clear empties the path for reuse without reallocating.
func (p *LightPath) Clear() {
	p.vertices = p.vertices[:0]
	p.edges = p.edges[:0]
	p.preCollapseIndex = p.preCollapseIndex[:0]
}

// Seed places the root vertex (a Camera or Emitter vertex) at index 0.
func (p *LightPath) Seed(root Vertex) {
	p.Clear()
	p.vertices = append(p.vertices, root)
	p.preCollapseIndex = append(p.preCollapseIndex, 0)
}

// Len reports the number of retained vertices.
func (p *LightPath) Len() int { return len(p.vertices) }

// Full reports whether the path has reached its fixed capacity.
func (p *LightPath) Full() bool { return len(p.vertices) >= p.capacity }

// At returns the vertex at index i.
func (p *LightPath) At(i int) *Vertex { return &p.vertices[i] }

// Tip returns the most recently appended vertex.
func (p *LightPath) Tip() *Vertex { return &p.vertices[len(p.vertices)-1] }

// EdgeAt returns the edge connecting vertex i and vertex i+1.
func (p *LightPath) EdgeAt(i int) *Edge { return &p.edges[i] }

// Extend appends the next vertex and the edge connecting it to the current
// tip. Returns false if the path is already at capacity.
func (p *LightPath) Extend(next Vertex, edge Edge) bool {
	if p.Full() {
		return false
	}
	p.vertices = append(p.vertices, next)
	p.edges = append(p.edges, edge)
	p.preCollapseIndex = append(p.preCollapseIndex, len(p.vertices)-1)
	return true
}

// CollapseForwardEvent merges a forward (zero-angular-deviation) scattering
// event into the edge preceding the tip rather than retaining it as its own
// vertex: the tip's PdfForward/PdfBackward are folded into the edge's
// transmittance densities and the vertex is dropped. The original index is
// retained in preCollapseIndex for path-inversion bookkeeping.
func (p *LightPath) CollapseForwardEvent() {
	n := len(p.vertices)
	if n < 2 {
		return
	}
	last := p.vertices[n-1]
	edgeIdx := len(p.edges) - 1
	p.edges[edgeIdx].PdfForward *= last.PdfForward
	p.edges[edgeIdx].PdfBackward *= last.PdfBackward
	p.vertices = p.vertices[:n-1]
	p.edges = p.edges[:edgeIdx]
	p.preCollapseIndex = p.preCollapseIndex[:n-1]
}

// Prune converts the path to area measure by walking every edge and
// multiplying its geometry term through each adjacent vertex's forward and
// backward densities. Call once after tracing completes, before use in
// BDPT connection strategies.
func (p *LightPath) Prune() {
	for i := 0; i < len(p.edges); i++ {
		a := &p.vertices[i]
		b := &p.vertices[i+1]
		e := p.edges[i]
		if !b.IsInfinite {
			cosB := float32(1)
			if b.OnSurface {
				cosB = absf(b.GeometricNorm.Dot(e.Dir))
			}
			b.PdfForward = b.PdfForward * cosB / e.LengthSq
		}
		if i > 0 {
			cosA := float32(1)
			if a.OnSurface {
				cosA = absf(a.GeometricNorm.Dot(e.Dir))
			}
			a.PdfBackward = a.PdfBackward * cosA / e.LengthSq
		}
	}
}

// OriginalIndex returns the pre-collapse index of the vertex now stored at
// position i, used by path inversion to map a merged-path position back to
// the original sampling-generator dimension sequence.
func (p *LightPath) OriginalIndex(i int) int { return p.preCollapseIndex[i] }
