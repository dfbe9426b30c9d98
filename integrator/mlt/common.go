// Package mlt implements the three Markov-Chain Monte Carlo integrator
// variants: Kelemen-style MLT, multiplexed MLT, and reversible-jump MLT.
// All three share a seed-pool phase and a per-chain mutate/accept/reject
// loop built on sampler.WritableSampler.
package mlt

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/sampler"
)

// Luminance approximates perceptual brightness from linear RGB, the scalar
// every MLT variant uses to drive acceptance probability and seed
// selection.
func Luminance(c mgl32.Vec3) float32 {
	return 0.2126*c.X() + 0.7152*c.Y() + 0.0722*c.Z()
}

// Seed is one candidate path drawn during the seed-pool phase: the sampler
// state that produced it (frozen for later replay) and its contribution.
type Seed struct {
	SamplerSeed uint32
	PixelX, PixelY int
	Contribution mgl32.Vec3
	Luminance    float32
}

// SeedPool shoots candidates with the underlying unidirectional integrator
// and selects one with probability proportional to luminance, returning it
// plus `b`, the pool's mean luminance (the seed-normalization estimate
// every chain's splats are weighted against).
type SeedPool struct {
	Seeds []Seed
	B     float32
}

// BuildSeedPool draws n candidates via trace (which must internally vary
// its own sampler seed per call) and keeps every one with positive
// luminance, computing the pool's mean luminance b.
func BuildSeedPool(n int, trace func(candidateIdx int) Seed) *SeedPool {
	pool := &SeedPool{Seeds: make([]Seed, 0, n)}
	totalLum := float32(0)
	for i := 0; i < n; i++ {
		s := trace(i)
		if s.Luminance <= 0 {
			continue
		}
		pool.Seeds = append(pool.Seeds, s)
		totalLum += s.Luminance
	}
	if len(pool.Seeds) > 0 {
		pool.B = totalLum / float32(len(pool.Seeds))
	}
	return pool
}

// SelectSeed draws one seed from the pool with probability proportional to
// luminance, using a single uniform draw u in [0,1).
func (p *SeedPool) SelectSeed(u float32) (Seed, bool) {
	if len(p.Seeds) == 0 {
		return Seed{}, false
	}
	total := float32(0)
	for _, s := range p.Seeds {
		total += s.Luminance
	}
	if total <= 0 {
		return p.Seeds[0], true
	}
	target := u * total
	acc := float32(0)
	for _, s := range p.Seeds {
		acc += s.Luminance
		if target <= acc {
			return s, true
		}
	}
	return p.Seeds[len(p.Seeds)-1], true
}

// ChainBudget returns the number of mutations to run from one seed: budget
// proportional to pixel count x spp x the seed's per-length luminance
// fraction of the pool.
func ChainBudget(totalMutations int, seedLuminance, poolTotalLuminance float32) int {
	if poolTotalLuminance <= 0 {
		return 0
	}
	frac := seedLuminance / poolTotalLuminance
	return int(frac * float32(totalMutations))
}

// Proposal is the result of running the underlying integrator from a
// mutated WritableSampler state: its pixel and contribution.
type Proposal struct {
	PixelX, PixelY int
	Contribution   mgl32.Vec3
}

// AcceptReject runs the Kelemen acceptance rule a = min(1, I(y)/I(x)) and
// splats both the current and proposed samples' weighted contributions —
// (1-a)*b/I(x) at the current pixel and a*b/I(y) at the proposed pixel —
// then commits or discards the sampler's proposed state accordingly.
// splat(px, py, weighted) is called at most twice per call: once for each
// of the two samples whose luminance is positive.
func AcceptReject(s *sampler.WritableSampler, current, proposed Proposal, b float32, u float32, splat func(px, py int, weighted mgl32.Vec3)) (accepted bool) {
	lumCurrent := Luminance(current.Contribution)
	lumProposed := Luminance(proposed.Contribution)

	a := float32(1)
	if lumCurrent > 0 {
		a = minf(1, lumProposed/lumCurrent)
	} else if lumProposed <= 0 {
		a = 0
	}

	if lumCurrent > 0 {
		splat(current.PixelX, current.PixelY, current.Contribution.Mul((1-a)*b/lumCurrent))
	}
	if lumProposed > 0 {
		splat(proposed.PixelX, proposed.PixelY, proposed.Contribution.Mul(a*b/lumProposed))
	}

	if u < a {
		s.Accept()
		return true
	}
	s.Reject()
	return false
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
