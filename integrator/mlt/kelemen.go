package mlt

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/sampler"
)

// defaultPLarge is the probability a Kelemen-chain mutation is a large
// step (full independent resample) rather than a local perturbation.
const defaultPLarge = 0.3

// KelemenChain runs a single Markov chain: one sampler, repeated
// large/small-step mutations, acceptance via AcceptReject.
type KelemenChain struct {
	Sampler *sampler.WritableSampler
	Trace   func(s *sampler.WritableSampler) Proposal
	PLarge  float32
	B       float32

	current Proposal
}

// NewKelemenChain seeds the chain by freezing the sampler at its seed state
// and re-tracing it, establishing `current` before any mutation runs.
func NewKelemenChain(s *sampler.WritableSampler, trace func(*sampler.WritableSampler) Proposal, b float32) *KelemenChain {
	c := &KelemenChain{Sampler: s, Trace: trace, PLarge: defaultPLarge, B: b}
	s.Freeze()
	c.current = trace(s)
	return c
}

// Mutate runs one large-or-small-step proposal and its accept/reject
// decision, splatting both the current and proposed sample's weighted
// contribution. u1 selects large vs small step, u2 is the accept/reject
// uniform draw — both drawn from an independent uniform sampler, since the
// step-kind choice itself must not become a perturbable dimension.
func (c *KelemenChain) Mutate(u1, u2 float32, splat func(px, py int, weighted mgl32.Vec3)) bool {
	if u1 < c.PLarge {
		c.Sampler.LargeStep()
	} else {
		c.Sampler.SmallStep()
	}
	proposed := c.Trace(c.Sampler)

	accepted := AcceptReject(c.Sampler, c.current, proposed, c.B, u2, splat)
	if accepted {
		c.current = proposed
	}
	return accepted
}
