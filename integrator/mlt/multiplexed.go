package mlt

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/sampler"
)

// TechniqueCount returns how many (s, t) splits are admissible for a fixed
// path length: s ranges from 0 to length+1 with t = length+1-s.
func TechniqueCount(length int) int { return length + 2 }

// SplitFromSampler reads the split dimension carried at sampler dimension
// 0 (by convention, every multiplexed-MLT trace function must Seek(0)
// before drawing it) and maps it to a discrete (s, t) pair for the given
// fixed path length.
func SplitFromSampler(s *sampler.WritableSampler, length int) (sIdx, t int) {
	s.Seek(0)
	u := s.Next1D()
	n := TechniqueCount(length)
	idx := int(u * float32(n))
	if idx >= n {
		idx = n - 1
	}
	return idx, length + 1 - idx
}

// MultiplexedChain runs one fixed-length chain whose trace function both
// reads the split dimension (via SplitFromSampler) and evaluates the
// corresponding BDPT connection strategy, normalizing per-length estimates
// from large-step statistics only; small-step inclusion is left for future
// experimentation.
type MultiplexedChain struct {
	Sampler *sampler.WritableSampler
	Trace   func(s *sampler.WritableSampler) Proposal
	PLarge  float32
	B       float32

	current Proposal

	largeStepLumSum   float32
	largeStepCount    int
}

func NewMultiplexedChain(s *sampler.WritableSampler, trace func(*sampler.WritableSampler) Proposal, b float32) *MultiplexedChain {
	c := &MultiplexedChain{Sampler: s, Trace: trace, PLarge: defaultPLarge, B: b}
	s.Freeze()
	c.current = trace(s)
	return c
}

// Mutate proposes either: a full large step (resamples the split and every
// dimension), or a small step that may additionally re-read the split
// dimension (letting small steps change technique), then runs acceptance.
func (c *MultiplexedChain) Mutate(u1, u2 float32, splat func(px, py int, weighted mgl32.Vec3)) bool {
	isLarge := u1 < c.PLarge
	if isLarge {
		c.Sampler.LargeStep()
	} else {
		c.Sampler.SmallStep()
	}
	proposed := c.Trace(c.Sampler)

	if isLarge {
		lum := Luminance(proposed.Contribution)
		c.largeStepLumSum += lum
		c.largeStepCount++
	}

	accepted := AcceptReject(c.Sampler, c.current, proposed, c.B, u2, splat)
	if accepted {
		c.current = proposed
	}
	return accepted
}

// NormalizationEstimate returns the per-length normalization factor b_k
// estimated from large-step statistics only.
func (c *MultiplexedChain) NormalizationEstimate() float32 {
	if c.largeStepCount == 0 {
		return c.B
	}
	return c.largeStepLumSum / float32(c.largeStepCount)
}
