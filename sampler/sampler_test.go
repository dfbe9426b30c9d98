package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformSamplerInRange(t *testing.T) {
	s := NewUniformSampler(42)
	s.StartPath(3, 7)
	for range 1000 {
		v := s.Next1D()
		require.GreaterOrEqual(t, v, float32(0))
		require.Less(t, v, float32(1))
		a, b := s.Next2D()
		require.Less(t, a, float32(1))
		require.Less(t, b, float32(1))
	}
}

func TestUniformSamplerDeterministicPerPath(t *testing.T) {
	s1 := NewUniformSampler(1)
	s1.StartPath(10, 5)
	v1 := s1.Next1D()

	s2 := NewUniformSampler(1)
	s2.StartPath(10, 5)
	v2 := s2.Next1D()

	assert.Equal(t, v1, v2, "same (pixel, sample, seed) must reproduce identical draws")
}

func TestUniformSamplerDiffersAcrossSamples(t *testing.T) {
	s := NewUniformSampler(1)
	s.StartPath(10, 0)
	v0 := s.Next1D()
	s.StartPath(10, 1)
	v1 := s.Next1D()
	assert.NotEqual(t, v0, v1)
}

func TestLowDiscrepancyFallsBackBeyondCap(t *testing.T) {
	s := NewLowDiscrepancySampler(9)
	s.StartPath(0, 0)
	for range sobolDimensionCap + 10 {
		v := s.Next1D()
		if v < 0 || v >= 1 {
			t.Fatalf("sample out of range: %f", v)
		}
	}
	if s.dimension < sobolDimensionCap {
		t.Fatalf("expected dimension counter past cap, got %d", s.dimension)
	}
}

func TestWritableSamplerAcceptCommitsProposal(t *testing.T) {
	s := NewWritableSampler(5, MutationKelemen)
	s.StartPath(0, 0)
	first := s.Next1D()
	s.Accept()

	s.Seek(0)
	s.SmallStep()
	second := s.recordedNext()
	assert.NotEqual(t, first, second, "small step should perturb the committed value")
}

func TestWritableSamplerRejectKeepsCurrent(t *testing.T) {
	s := NewWritableSampler(5, MutationGaussian)
	s.StartPath(0, 0)
	first := s.Next1D()
	s.Reject()

	s.Seek(0)
	got := s.coords[0].value
	assert.Equal(t, first, got, "reject must not alter the committed current value")
}

func TestWritableSamplerPutThenReadRoundTrips(t *testing.T) {
	s := NewWritableSampler(1, MutationKelemen)
	s.StartPath(0, 0)
	s.Seek(2)
	s.Put2D(0.25, 0.75)

	s.Seek(2)
	a, b := s.Next2D()
	assert.InDelta(t, float32(0.25), a, 1e-6)
	assert.InDelta(t, float32(0.75), b, 1e-6)
}

func TestWritableSamplerFreezeDoesNotPerturb(t *testing.T) {
	s := NewWritableSampler(1, MutationKelemen)
	s.StartPath(0, 0)
	v := s.Next1D()
	s.Accept()

	s.Freeze()
	s.Seek(0)
	got := s.recordedNext()
	assert.Equal(t, v, got)
}
