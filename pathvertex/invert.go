package pathvertex

import (
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene"
)

// Invert walks a light path's vertex sequence, writing into w the uniform
// numbers that would regenerate each surface vertex's sampled scattering
// event, supporting reversible-jump MLT's technique-change mutation.
// Returns false as soon as a vertex is non-invertible: either it is a
// Dirac surface, or its Material does not implement
// scene.Invertible.
//
// dimensionOffset is the WritableSampler dimension at which this path's
// recorded values begin (callers interleave camera- and light-subpath
// dimensions in one sampler, so the offset varies by which half of the
// merged path is being inverted).
func Invert(path *LightPath, w *sampler.WritableSampler, dimensionOffset int) bool {
	for i := 1; i < path.Len(); i++ {
		v := path.At(i)
		if v.Kind != KindSurface {
			continue
		}
		if v.Material == nil || v.Material.IsDirac() {
			return false
		}
		inv, ok := v.Material.(scene.Invertible)
		if !ok {
			return false
		}
		u1, u2, ok := inv.InvertSample(v.Event)
		if !ok {
			return false
		}
		w.Seek(dimensionOffset + (i-1)*3)
		w.Put1D(u1)
		w.Put2D(u2.X(), u2.Y())
	}
	return true
}
