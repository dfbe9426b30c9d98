package photon

import "github.com/go-gl/mathgl/mgl32"

// FrustumGrid is the optional pinhole-camera-only acceleration structure:
// photons are projected through a camera-aligned grid during a
// preliminary pass, letting the gather phase splat a photon directly into
// the pixels whose primary rays plausibly intersect it, skipping k-d
// traversal entirely.
type FrustumGrid struct {
	Width, Height int
	cellPhotons   [][]int
}

// NewFrustumGrid allocates an empty w x h grid, one cell per pixel.
func NewFrustumGrid(w, h int) *FrustumGrid {
	return &FrustumGrid{Width: w, Height: h, cellPhotons: make([][]int, w*h)}
}

// Project maps a photon's world position through the camera's direct-sample
// contract and, on success, appends the photon's index to that pixel's
// cell (and the other cells of its 3x3 neighborhood, to tolerate the
// gather radius).
func (g *FrustumGrid) Project(index int, position mgl32.Vec3, sampleDirect func(p mgl32.Vec3) (px, py int, ok bool)) {
	px, py, ok := sampleDirect(position)
	if !ok {
		return
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := px+dx, py+dy
			if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
				continue
			}
			idx := y*g.Width + x
			g.cellPhotons[idx] = append(g.cellPhotons[idx], index)
		}
	}
}

// Candidates returns the photon indices projected near pixel (x, y).
func (g *FrustumGrid) Candidates(x, y int) []int {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return nil
	}
	return g.cellPhotons[y*g.Width+x]
}

// Clear drops every cell's contents for reuse on the next photon pass.
func (g *FrustumGrid) Clear() {
	for i := range g.cellPhotons {
		g.cellPhotons[i] = g.cellPhotons[i][:0]
	}
}
