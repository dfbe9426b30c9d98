package render

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/emberrender/ember/internal/workerpool"
	"github.com/emberrender/ember/sampler"
)

func TestCheckpointRoundTripsRecords(t *testing.T) {
	session := uuid.New()
	records := []*SampleRecord{{TileX: 0, TileY: 0}, {TileX: 4, TileY: 0}}
	records[0].Accumulate(0.5)
	records[0].Accumulate(0.7)
	records[1].Accumulate(0.1)

	var buf bytes.Buffer
	require.NoError(t, SaveCheckpoint(&buf, session, records, nil))

	loaded := []*SampleRecord{{}, {}}
	require.NoError(t, LoadCheckpoint(bytes.NewReader(buf.Bytes()), session, loaded, nil))

	require.Equal(t, records[0].SampleCount, loaded[0].SampleCount)
	require.InDelta(t, records[0].Mean, loaded[0].Mean, 1e-6)
	require.Equal(t, records[1].SampleCount, loaded[1].SampleCount)
}

func TestCheckpointRejectsMismatchedSession(t *testing.T) {
	var buf bytes.Buffer
	records := []*SampleRecord{{}}
	require.NoError(t, SaveCheckpoint(&buf, uuid.New(), records, nil))

	err := LoadCheckpoint(&buf, uuid.New(), records, nil)
	require.Error(t, err)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, CheckpointMismatch, renderErr.Kind)
}

func TestCheckpointRejectsRecordCountMismatch(t *testing.T) {
	session := uuid.New()
	var buf bytes.Buffer
	require.NoError(t, SaveCheckpoint(&buf, session, []*SampleRecord{{}, {}}, nil))

	err := LoadCheckpoint(&buf, session, []*SampleRecord{{}}, nil)
	require.Error(t, err)
}

func TestDriverCheckpointRoundTripsThroughSamplers(t *testing.T) {
	cfg := Config{Width: 8, Height: 8, TargetSPP: 4, InitialBatch: 4}
	trace := func(px, py int, s sampler.Sampler) mgl32.Vec3 { return mgl32.Vec3{} }
	newSampler := func() sampler.Sampler { return sampler.NewUniformSampler(3) }

	pool := workerpool.New(1)
	defer pool.Close()

	d := NewDriver(cfg, pool, nil, trace, newSampler)
	require.NoError(t, d.Run())

	var buf bytes.Buffer
	require.NoError(t, d.SaveCheckpoint(&buf))

	d2 := NewDriver(cfg, pool, nil, trace, newSampler)
	d2.SessionID = d.SessionID
	require.NoError(t, d2.LoadCheckpoint(bytes.NewReader(buf.Bytes())))
	require.Equal(t, d.spp, d2.spp)
	require.Equal(t, d.nextBatch, d2.nextBatch)
}

// TestResumedRenderMatchesUninterruptedRender drives the same render two
// ways: straight through to TargetSPP in one process, and split into two
// processes joined by a checkpoint at an intermediate spp. Both must
// produce identical per-pixel colors and per-tile statistics, which only
// holds if every (pixel, sample index) pair drawn by the resumed run is
// exactly the set an uninterrupted run would have drawn — no pair skipped,
// none drawn twice — and if the doubling-batch schedule and adaptive
// weights pick up exactly where they left off.
func TestResumedRenderMatchesUninterruptedRender(t *testing.T) {
	newDriver := func(targetSPP int) *Driver {
		trace := func(px, py int, s sampler.Sampler) mgl32.Vec3 {
			u1, u2 := s.Next2D()
			return mgl32.Vec3{u1, u2, 0}
		}
		cfg := Config{Width: 8, Height: 8, TargetSPP: targetSPP, InitialBatch: 2}
		pool := workerpool.New(2)
		d := NewDriver(cfg, pool, nil, trace, func() sampler.Sampler { return sampler.NewUniformSampler(7) })
		t.Cleanup(pool.Close)
		return d
	}

	baseline := newDriver(8)
	require.NoError(t, baseline.Run())

	firstHalf := newDriver(6)
	require.NoError(t, firstHalf.Run())

	var buf bytes.Buffer
	require.NoError(t, firstHalf.SaveCheckpoint(&buf))

	resumed := newDriver(8)
	resumed.SessionID = firstHalf.SessionID
	require.NoError(t, resumed.LoadCheckpoint(bytes.NewReader(buf.Bytes())))
	require.NoError(t, resumed.Run())

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			require.Equal(t, baseline.Framebuffer().Resolve(x, y), resumed.Framebuffer().Resolve(x, y), "pixel (%d,%d)", x, y)
		}
	}
	for i, rec := range baseline.records {
		require.Equal(t, rec.SampleCount, resumed.records[i].SampleCount, "record %d", i)
		require.Equal(t, rec.Mean, resumed.records[i].Mean, "record %d", i)
	}
}
