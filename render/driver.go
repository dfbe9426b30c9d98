package render

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/emberrender/ember/framebuffer"
	"github.com/emberrender/ember/internal/logging"
	"github.com/emberrender/ember/internal/workerpool"
	"github.com/emberrender/ember/sampler"
)

// persistentSampler is implemented by the driver's own sample generators
// (UniformSampler, LowDiscrepancySampler) but not by the MLT-only
// WritableSampler, which never backs an image tile.
type persistentSampler interface {
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
}

// Config holds the driver's render parameters, populated from CLI flags by
// cmd/ember-render.
type Config struct {
	Width, Height int
	TargetSPP     int
	Threads       int
	// InitialBatch is the spp granularity of the first pass; subsequent
	// passes double it (geometric schedule) up to TargetSPP.
	InitialBatch int
}

// TracePixelFunc renders one sample at (px, py) using the supplied sampler
// and returns its contribution. Supplied by the caller (wraps whichever
// integrator was selected); the driver never depends on a concrete
// integrator package.
type TracePixelFunc func(px, py int, s sampler.Sampler) mgl32.Vec3

// Driver runs the tiled, adaptively-sampled render loop over a fixed-size
// worker pool.
type Driver struct {
	Config    Config
	SessionID uuid.UUID

	fb     *framebuffer.Framebuffer
	pool   *workerpool.Pool
	logger logging.Logger
	trace  TracePixelFunc

	tilesX, tilesY int
	vTilesX, vTilesY int
	records []*SampleRecord
	samplers []sampler.Sampler

	spp       int
	nextBatch int
	aborted   atomic.Bool
}

// NewDriver constructs a driver over a w x h framebuffer. newSampler builds
// one fresh sample generator (uniform or low-discrepancy, depending on
// render config); the driver owns one instance per image tile and reseeds
// it per sample via StartPath, rather than one per pixel.
func NewDriver(cfg Config, pool *workerpool.Pool, logger logging.Logger, trace TracePixelFunc, newSampler func() sampler.Sampler) *Driver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	initialBatch := cfg.InitialBatch
	if initialBatch <= 0 {
		initialBatch = 16
	}
	d := &Driver{
		Config:    cfg,
		SessionID: uuid.New(),
		fb:        framebuffer.New(cfg.Width, cfg.Height),
		pool:      pool,
		logger:    logger,
		trace:     trace,
		nextBatch: initialBatch,
	}

	vTiles := DiceVarianceTiles(cfg.Width, cfg.Height)
	d.vTilesX = (cfg.Width + VarianceTileSize - 1) / VarianceTileSize
	d.vTilesY = (cfg.Height + VarianceTileSize - 1) / VarianceTileSize
	d.records = make([]*SampleRecord, len(vTiles))
	for i, vt := range vTiles {
		d.records[i] = &SampleRecord{TileX: uint32(vt.X), TileY: uint32(vt.Y)}
	}

	tiles := DiceTiles(cfg.Width, cfg.Height)
	d.tilesX = (cfg.Width + TileSize - 1) / TileSize
	d.tilesY = (cfg.Height + TileSize - 1) / TileSize
	d.samplers = make([]sampler.Sampler, len(tiles))
	for i := range tiles {
		d.samplers[i] = newSampler()
	}

	return d
}

// Framebuffer returns the driver's accumulation buffers, for egress once
// rendering stops.
func (d *Driver) Framebuffer() *framebuffer.Framebuffer { return d.fb }

// Abort sets a flag polled by worker inner loops: in-flight sub-tasks finish
// (at most one tile per worker), pending sub-tasks are dropped, and no
// partial pixel is written, matching the cancellation contract.
func (d *Driver) Abort() { d.aborted.Store(true) }

func (d *Driver) Aborted() bool { return d.aborted.Load() }

// Run renders passes of doubling spp (InitialBatch, 2x, 4x, ...) up to
// TargetSPP, redistributing the next pass's per-pixel sample budget from the
// adaptive-sampling weights once at least adaptiveMinSPP samples have
// accumulated. d.nextBatch carries the doubling schedule across a
// checkpoint resume, so a resumed render reissues the same sequence of
// DistributeSamples budgets an uninterrupted run would have. Returns a
// *RenderError on worker exception; returns nil on a clean finish or a
// caller-requested Abort.
func (d *Driver) Run() error {
	tiles := DiceTiles(d.Config.Width, d.Config.Height)

	for d.spp < d.Config.TargetSPP {
		if d.aborted.Load() {
			d.logger.Warnf("render aborted at spp=%d", d.spp)
			return nil
		}
		thisBatch := min(d.nextBatch, d.Config.TargetSPP-d.spp)

		ComputeWeights(d.records, d.vTilesX, d.vTilesY)
		DistributeSamples(d.records, thisBatch*len(d.records))

		group := d.pool.NewTaskGroup(len(tiles), func(i int) error {
			if d.aborted.Load() {
				return nil
			}
			return d.renderTile(tiles[i], d.samplers[i])
		})
		if err := group.Wait(); err != nil {
			return newRenderError(WorkerException, err)
		}
		if d.aborted.Load() {
			d.logger.Warnf("render aborted at spp=%d", d.spp)
			return nil
		}

		d.spp += thisBatch
		d.logger.Infof("completed pass: spp=%d/%d", d.spp, d.Config.TargetSPP)
		d.nextBatch *= 2
	}
	return nil
}

// renderTile renders every pixel of tile, one variance-tile-sized block at a
// time: each block's sample-index base comes from that variance tile's own
// SampleRecord.Pass counter, shared by every pixel in the block and advanced
// exactly once per block per pass. Deriving indices this way (rather than
// from the pass-global spp counter) keeps indices unique per pixel across
// passes even though NextSampleCount varies per tile — a tile that received
// more samples than the pass's nominal batch size no longer reuses index
// values a later pass would also use.
func (d *Driver) renderTile(tile Tile, s sampler.Sampler) error {
	for by := tile.Y; by < tile.Y+tile.H; by += VarianceTileSize {
		for bx := tile.X; bx < tile.X+tile.W; bx += VarianceTileSize {
			if d.aborted.Load() {
				return nil
			}
			if err := d.renderVarianceBlock(tile, bx, by, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) renderVarianceBlock(tile Tile, bx, by int, s sampler.Sampler) error {
	rec := d.recordAt(bx, by)
	n := 1
	var base uint32
	if rec != nil {
		n = int(rec.NextSampleCount)
		base = rec.Pass
	}

	yEnd := min(by+VarianceTileSize, tile.Y+tile.H)
	xEnd := min(bx+VarianceTileSize, tile.X+tile.W)
	for y := by; y < yEnd; y++ {
		for x := bx; x < xEnd; x++ {
			if d.aborted.Load() {
				return nil
			}
			pixelIndex := uint32(y*d.Config.Width + x)
			for i := 0; i < n; i++ {
				s.StartPath(pixelIndex, base+uint32(i))
				c := d.trace(x, y, s)
				if hasNaNVec(c) {
					d.logger.Warnf("dropped NaN sample at (%d, %d)", x, y)
					continue
				}
				d.fb.Color.Add(x, y, c)
				d.recordSample(x, y, c)
			}
		}
	}
	if rec != nil {
		rec.Pass = base + uint32(n)
	}
	return nil
}

// recordAt returns the SampleRecord owning pixel (x, y), or nil if (x, y)
// falls outside the tracked variance grid.
func (d *Driver) recordAt(x, y int) *SampleRecord {
	vx, vy := x/VarianceTileSize, y/VarianceTileSize
	idx := vy*d.vTilesX + vx
	if idx < 0 || idx >= len(d.records) {
		return nil
	}
	return d.records[idx]
}

func (d *Driver) recordSample(x, y int, c mgl32.Vec3) {
	rec := d.recordAt(x, y)
	if rec == nil {
		return
	}
	lum := 0.2126*c.X() + 0.7152*c.Y() + 0.0722*c.Z()
	rec.Accumulate(lum)
}

// SaveCheckpoint persists every variance-tile record and every image tile's
// sampler state, in that fixed order, under the driver's SessionID, followed
// by the driver's own pass counter and its doubling-batch schedule. Both are
// written separately from the records: spp tracks nominal passes completed,
// not the per-tile sample counts DistributeSamples actually assigned (the
// two diverge once adaptive sampling gives some tiles more than the nominal
// batch size), and nextBatch must survive a resume so the resumed process
// continues the same doubling sequence an uninterrupted run would have
// rather than restarting it from InitialBatch.
func (d *Driver) SaveCheckpoint(w io.Writer) error {
	tileStates, err := d.tileSamplerStates()
	if err != nil {
		return err
	}
	if err := SaveCheckpoint(w, d.SessionID, d.records, tileStates); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d.spp))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(d.nextBatch))
	_, err = w.Write(buf[:])
	return err
}

// LoadCheckpoint restores a checkpoint previously written by SaveCheckpoint
// for this same driver's SessionID; a mismatch refuses the resume.
func (d *Driver) LoadCheckpoint(r io.Reader) error {
	tileStates, err := d.tileSamplerStates()
	if err != nil {
		return err
	}
	if err := LoadCheckpoint(r, d.SessionID, d.records, tileStates); err != nil {
		return err
	}
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return newRenderError(CheckpointMismatch, err)
	}
	d.spp = int(binary.LittleEndian.Uint32(buf[0:4]))
	d.nextBatch = int(binary.LittleEndian.Uint32(buf[4:8]))
	return nil
}

func (d *Driver) tileSamplerStates() ([]TileSamplerState, error) {
	states := make([]TileSamplerState, len(d.samplers))
	for i, s := range d.samplers {
		ps, ok := s.(persistentSampler)
		if !ok {
			return nil, fmt.Errorf("render: sampler %T does not support checkpointing", s)
		}
		states[i] = TileSamplerState{SaveState: ps.SaveState, LoadState: ps.LoadState}
	}
	return states, nil
}

func hasNaNVec(v mgl32.Vec3) bool {
	return v.X() != v.X() || v.Y() != v.Y() || v.Z() != v.Z()
}
