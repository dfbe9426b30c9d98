// Command ember-render drives a single offline render from the command
// line: load a scene, run the tiled adaptive-sampling driver to a target
// spp (optionally resuming from a checkpoint), and save a checkpoint if the
// render was aborted. The rendered framebuffer is not written to disk.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/integrator/pathtracer"
	"github.com/emberrender/ember/internal/logging"
	"github.com/emberrender/ember/internal/workerpool"
	"github.com/emberrender/ember/render"
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene/testscene"
	"github.com/emberrender/ember/tracer"
)

const (
	exitOK            = 0
	exitSceneLoadFail = 1
	exitAborted       = 2
)

func main() {
	scenePath := flag.String("scene", "", "path to the scene file to render")
	spp := flag.Int("spp", 256, "target samples per pixel")
	threads := flag.Int("threads", 0, "worker thread count (0 = hardware concurrency)")
	resume := flag.Bool("resume", false, "resume from the checkpoint file <scene>.ckpt beside the scene file")
	flag.Parse()

	logger := logging.NewDefaultLogger("ember-render", false)

	if *scenePath == "" {
		logger.Errorf("--scene is required")
		os.Exit(exitSceneLoadFail)
	}

	sc, err := loadScene(*scenePath)
	if err != nil {
		logger.Errorf("scene load failed: %v", err)
		os.Exit(exitSceneLoadFail)
	}

	pool := workerpool.New(*threads)
	defer pool.Close()

	tr := tracer.New(sc, tracer.Config{MaxBounces: 8, RRDepth: 4})
	integrator := pathtracer.New(tr)

	w, h := sc.Cam().Resolution()
	traceFn := func(px, py int, s sampler.Sampler) mgl32.Vec3 {
		u1, u2 := s.Next2D()
		ray := sc.Cam().GenerateRay(px, py, mgl32.Vec2{u1, u2})
		return integrator.TraceSample(ray, s)
	}

	cfg := render.Config{Width: w, Height: h, TargetSPP: *spp, InitialBatch: 16}
	driver := render.NewDriver(cfg, pool, logger, traceFn, func() sampler.Sampler {
		return sampler.NewLowDiscrepancySampler(1)
	})

	checkpointPath := *scenePath + ".ckpt"
	if *resume {
		if err := loadCheckpointFile(driver, checkpointPath); err != nil {
			logger.Errorf("checkpoint mismatch: %v", err)
			os.Exit(exitSceneLoadFail)
		}
	}

	if err := driver.Run(); err != nil {
		logger.Errorf("render failed: %v", err)
		os.Exit(exitAborted)
	}

	if driver.Aborted() {
		if err := saveCheckpointFile(driver, checkpointPath); err != nil {
			logger.Errorf("failed to save checkpoint: %v", err)
		}
		os.Exit(exitAborted)
	}

	logger.Infof("render complete: session=%s", driver.SessionID)
	os.Exit(exitOK)
}

// loadScene is a placeholder scene loader: scene file parsing and
// JSON-driven object factories are an external collaborator's
// responsibility, out of scope for this core. It builds a minimal fixed
// test scene so the binary is runnable end to end during development.
func loadScene(path string) (*testscene.BruteForceScene, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open scene %q: %w", path, err)
	}
	cam := testscene.NewPinholeCamera(mgl32.Vec3{0, 1, -4}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0}, 0.9, 640, 480)
	floor := &testscene.Quad{
		Center: mgl32.Vec3{0, 0, 0}, HalfExtents: mgl32.Vec2{4, 4},
		Normal: mgl32.Vec3{0, 1, 0}, Mat: &testscene.LambertianMaterial{Albedo: mgl32.Vec3{0.8, 0.8, 0.8}},
	}
	emitter := &testscene.Quad{
		Center: mgl32.Vec3{0, 4, 0}, HalfExtents: mgl32.Vec2{1, 1},
		Normal: mgl32.Vec3{0, -1, 0},
	}
	emitter.Lt = &testscene.AreaLight{Quad: emitter, Radiance: mgl32.Vec3{10, 10, 10}}
	return testscene.NewBruteForceScene(cam, nil, []*testscene.Quad{floor, emitter}), nil
}

// loadCheckpointFile adopts the checkpoint's own session id before
// validating and loading it — a driver always starts with a freshly
// generated SessionID, so without this a resume would always report a
// mismatch against itself.
func loadCheckpointFile(d *render.Driver, path string) error {
	peek, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sid, err := render.PeekCheckpointSessionID(peek)
	peek.Close()
	if err != nil {
		return err
	}
	d.SessionID = sid

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.LoadCheckpoint(f)
}

func saveCheckpointFile(d *render.Driver, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.SaveCheckpoint(f)
}
