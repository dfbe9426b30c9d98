// Package framebuffer implements the render core's two accumulation
// buffers: a tile-local color buffer written without synchronization, and a
// shared splat buffer written concurrently via atomic compare-exchange adds.
package framebuffer

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorBuffer is written only by the tile that owns each pixel; no
// synchronization needed because tiles own disjoint pixel sets.
type ColorBuffer struct {
	Width, Height int
	pixels        []mgl32.Vec3
}

func NewColorBuffer(w, h int) *ColorBuffer {
	return &ColorBuffer{Width: w, Height: h, pixels: make([]mgl32.Vec3, w*h)}
}

func (c *ColorBuffer) At(x, y int) mgl32.Vec3 { return c.pixels[y*c.Width+x] }

// Add accumulates a sample into pixel (x, y). Callers are responsible for
// ensuring only the owning tile's worker ever calls this for a given pixel.
func (c *ColorBuffer) Add(x, y int, v mgl32.Vec3) {
	idx := y*c.Width + x
	c.pixels[idx] = c.pixels[idx].Add(v)
}

func (c *ColorBuffer) Set(x, y int, v mgl32.Vec3) { c.pixels[y*c.Width+x] = v }

// SplatBuffer accumulates light-tracer and BDPT splats concurrently from
// any worker. Each channel is stored as raw float32 bits behind an
// atomic.Uint32 so concurrent adds use a compare-exchange loop rather than a
// mutex — the only legal way to add to a float atomically without a native
// atomic-float instruction.
type SplatBuffer struct {
	Width, Height int
	r, g, b       []atomic.Uint32
}

func NewSplatBuffer(w, h int) *SplatBuffer {
	n := w * h
	return &SplatBuffer{Width: w, Height: h, r: make([]atomic.Uint32, n), g: make([]atomic.Uint32, n), b: make([]atomic.Uint32, n)}
}

func atomicAddFloat(a *atomic.Uint32, delta float32) {
	for {
		old := a.Load()
		newVal := math.Float32bits(math.Float32frombits(old) + delta)
		if a.CompareAndSwap(old, newVal) {
			return
		}
	}
}

// Splat atomically adds v to pixel (x, y). Safe to call concurrently from
// any number of workers for the same pixel.
func (s *SplatBuffer) Splat(x, y int, v mgl32.Vec3) {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return
	}
	idx := y*s.Width + x
	atomicAddFloat(&s.r[idx], v.X())
	atomicAddFloat(&s.g[idx], v.Y())
	atomicAddFloat(&s.b[idx], v.Z())
}

func (s *SplatBuffer) At(x, y int) mgl32.Vec3 {
	idx := y*s.Width + x
	return mgl32.Vec3{
		math.Float32frombits(s.r[idx].Load()),
		math.Float32frombits(s.g[idx].Load()),
		math.Float32frombits(s.b[idx].Load()),
	}
}

// Framebuffer combines the color and splat buffers under configurable
// weights, matching the measurement equation's
// outputPixel = colorBufferWeight*colorBuffer[p] + splatWeight*splatBuffer[p].
type Framebuffer struct {
	Color             *ColorBuffer
	Splat             *SplatBuffer
	ColorBufferWeight float32
	SplatWeight       float32
}

func New(w, h int) *Framebuffer {
	return &Framebuffer{
		Color:             NewColorBuffer(w, h),
		Splat:             NewSplatBuffer(w, h),
		ColorBufferWeight: 1,
		SplatWeight:       1,
	}
}

// Resolve composites the weighted pixel at (x, y).
func (f *Framebuffer) Resolve(x, y int) mgl32.Vec3 {
	c := f.Color.At(x, y).Mul(f.ColorBufferWeight)
	s := f.Splat.At(x, y).Mul(f.SplatWeight)
	return c.Add(s)
}
