package sampler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniformSamplerSaveLoadRoundTrips(t *testing.T) {
	s := NewUniformSampler(99)
	s.StartPath(4, 2)
	_ = s.Next1D()

	var buf bytes.Buffer
	require.NoError(t, s.SaveState(&buf))

	loaded := NewUniformSampler(0)
	require.NoError(t, loaded.LoadState(&buf))

	require.Equal(t, s.Next1D(), loaded.Next1D())
}

func TestLowDiscrepancySamplerSaveLoadRoundTrips(t *testing.T) {
	s := NewLowDiscrepancySampler(7)
	s.StartPath(1, 1)
	for range sobolDimensionCap + 3 {
		_ = s.Next1D()
	}

	var buf bytes.Buffer
	require.NoError(t, s.SaveState(&buf))

	loaded := NewLowDiscrepancySampler(0)
	require.NoError(t, loaded.LoadState(&buf))

	require.Equal(t, s.Next1D(), loaded.Next1D())
}

func TestLowDiscrepancyLoadRejectsWrongTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(versionUniform)
	buf.Write(make([]byte, 12))

	loaded := NewLowDiscrepancySampler(0)
	require.Error(t, loaded.LoadState(&buf))
}
