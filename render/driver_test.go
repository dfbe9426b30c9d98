package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberrender/ember/internal/workerpool"
	"github.com/emberrender/ember/integrator/pathtracer"
	"github.com/emberrender/ember/sampler"
	"github.com/emberrender/ember/scene/testscene"
	"github.com/emberrender/ember/tracer"

	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverEmptySceneProducesBlackImage(t *testing.T) {
	cam := testscene.NewPinholeCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 60, 8, 8)
	sc := testscene.NewBruteForceScene(cam, nil, nil)
	tr := tracer.New(sc, tracer.Config{MaxBounces: 4})
	pt := pathtracer.New(tr)

	pool := workerpool.New(2)
	defer pool.Close()

	trace := func(px, py int, s sampler.Sampler) mgl32.Vec3 {
		u1, u2 := s.Next2D()
		_ = u1
		ray := cam.GenerateRay(px, py, mgl32.Vec2{u2, u2})
		return pt.TraceSample(ray, s)
	}

	cfg := Config{Width: 8, Height: 8, TargetSPP: 4, InitialBatch: 4}
	d := NewDriver(cfg, pool, nil, trace, func() sampler.Sampler { return sampler.NewUniformSampler(1) })

	require.NoError(t, d.Run())

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := d.Framebuffer().Resolve(x, y)
			require.Equal(t, mgl32.Vec3{}, c)
		}
	}
}

func TestDriverAbortStopsWithoutError(t *testing.T) {
	cam := testscene.NewPinholeCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 60, 4, 4)
	sc := testscene.NewBruteForceScene(cam, nil, nil)
	tr := tracer.New(sc, tracer.Config{MaxBounces: 2})
	pt := pathtracer.New(tr)

	pool := workerpool.New(1)
	defer pool.Close()

	trace := func(px, py int, s sampler.Sampler) mgl32.Vec3 {
		ray := cam.GenerateRay(px, py, mgl32.Vec2{0.5, 0.5})
		return pt.TraceSample(ray, s)
	}

	cfg := Config{Width: 4, Height: 4, TargetSPP: 64, InitialBatch: 1}
	d := NewDriver(cfg, pool, nil, trace, func() sampler.Sampler { return sampler.NewUniformSampler(2) })
	d.Abort()

	require.NoError(t, d.Run())
	require.Equal(t, 0, d.spp)
}
