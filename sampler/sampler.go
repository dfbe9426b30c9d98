// Package sampler implements the render core's path-sample generators:
// uniform, low-discrepancy (scrambled Sobol with a uniform fallback beyond
// the dimension cap), and writable (Metropolis-mutable) variants, all
// behind one Sampler contract.
package sampler

import "math"

// Sampler is the common contract every path-sample generator implements.
type Sampler interface {
	StartPath(pixelIndex, sampleIndex uint32)
	AdvancePath()
	Next1D() float32
	Next2D() (float32, float32)
	NextBoolean(pTrue float32) bool
	NextDiscrete(n int) int
}

func nextBooleanFrom(s Sampler, pTrue float32) bool { return s.Next1D() < pTrue }
func nextDiscreteFrom(s Sampler, n int) int {
	if n <= 1 {
		return 0
	}
	idx := int(s.Next1D() * float32(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// --- Uniform -----------------------------------------------------------

// xorshift64 is the hot-path PRNG: a 13/7/17 shift-triple xorshift64
// generator, the same construction used by the core's reference benchmark
// for fast scalar random draws.
type xorshift64 struct{ state uint64 }

func (x *xorshift64) seed(s uint64) {
	if s == 0 {
		s = 0x9E3779B97F4A7C15
	}
	x.state = s
}

func (x *xorshift64) next() uint64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.state = s
	return s
}

func (x *xorshift64) nextFloat() float32 {
	// Top 24 bits give a uniform float32 in [0, 1).
	return float32(x.next()>>40) / float32(1<<24)
}

// splitmix64Mix hashes three 32-bit path coordinates into a 64-bit seed,
// grounded on the standard splitmix64 avalanche mix.
func splitmix64Mix(a, b, c uint32) uint64 {
	z := uint64(a)<<42 ^ uint64(b)<<21 ^ uint64(c)
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}

// UniformSampler draws independent uniform samples seeded by hashing
// (pixelIndex, sampleIndex, baseSeed).
type UniformSampler struct {
	rng      xorshift64
	baseSeed uint32
}

func NewUniformSampler(baseSeed uint32) *UniformSampler {
	return &UniformSampler{baseSeed: baseSeed}
}

func (s *UniformSampler) StartPath(pixelIndex, sampleIndex uint32) {
	s.rng.seed(splitmix64Mix(pixelIndex, sampleIndex, s.baseSeed))
}

func (s *UniformSampler) AdvancePath() {}

func (s *UniformSampler) Next1D() float32 { return s.rng.nextFloat() }
func (s *UniformSampler) Next2D() (float32, float32) {
	return s.rng.nextFloat(), s.rng.nextFloat()
}
func (s *UniformSampler) NextBoolean(pTrue float32) bool { return nextBooleanFrom(s, pTrue) }
func (s *UniformSampler) NextDiscrete(n int) int         { return nextDiscreteFrom(s, n) }

// --- Low-discrepancy (scrambled Sobol + uniform fallback) --------------

// sobolDimensionCap bounds how many low-discrepancy dimensions are handed
// out per path before falling back to a companion uniform sub-sampler, to
// avoid pathological correlation in very long paths.
const sobolDimensionCap = 1024

// vanDerCorputBase2 returns the radical-inverse of n in base 2.
func vanDerCorputBase2(n uint32) float32 {
	n = (n << 16) | (n >> 16)
	n = ((n & 0x00ff00ff) << 8) | ((n & 0xff00ff00) >> 8)
	n = ((n & 0x0f0f0f0f) << 4) | ((n & 0xf0f0f0f0) >> 4)
	n = ((n & 0x33333333) << 2) | ((n & 0xcccccccc) >> 2)
	n = ((n & 0x55555555) << 1) | ((n & 0xaaaaaaaa) >> 1)
	return float32(n) * 2.3283064365386963e-10 // 1/2^32
}

// sobolScramble applies a per-dimension digital (Owen-style) scramble by
// xoring in a hashed scramble value before the radical-inverse bit reversal
// settles, decorrelating dimensions sharing the same sample index.
func sobolScramble(n uint32, scrambleSeed uint64) float32 {
	h := splitmix64Mix(0, uint32(scrambleSeed), uint32(scrambleSeed>>32))
	return vanDerCorputBase2(n ^ uint32(h))
}

// LowDiscrepancySampler produces a scrambled-Sobol-style sequence: each
// path's sample index supplies the radical-inverse base, and successive
// AdvancePath calls move to the next dimension, each independently
// scrambled. Beyond sobolDimensionCap the sampler degrades to a companion
// uniform sub-sampler seeded the same way as UniformSampler.
type LowDiscrepancySampler struct {
	baseSeed    uint32
	sampleIndex uint32
	dimension   int
	fallback    UniformSampler
}

func NewLowDiscrepancySampler(baseSeed uint32) *LowDiscrepancySampler {
	return &LowDiscrepancySampler{baseSeed: baseSeed}
}

func (s *LowDiscrepancySampler) StartPath(pixelIndex, sampleIndex uint32) {
	s.sampleIndex = sampleIndex
	s.dimension = 0
	s.fallback.baseSeed = s.baseSeed
	s.fallback.StartPath(pixelIndex, sampleIndex)
}

func (s *LowDiscrepancySampler) AdvancePath() { s.dimension++ }

func (s *LowDiscrepancySampler) sobol1D() float32 {
	scramble := splitmix64Mix(uint32(s.dimension), s.baseSeed, 0x5DEECE66D)
	return sobolScramble(s.sampleIndex, scramble)
}

func (s *LowDiscrepancySampler) Next1D() float32 {
	if s.dimension >= sobolDimensionCap {
		return s.fallback.Next1D()
	}
	v := s.sobol1D()
	s.dimension++
	return v
}

func (s *LowDiscrepancySampler) Next2D() (float32, float32) {
	if s.dimension+1 >= sobolDimensionCap {
		return s.fallback.Next2D()
	}
	a := s.sobol1D()
	s.dimension++
	b := s.sobol1D()
	s.dimension++
	return a, b
}

func (s *LowDiscrepancySampler) NextBoolean(pTrue float32) bool { return nextBooleanFrom(s, pTrue) }
func (s *LowDiscrepancySampler) NextDiscrete(n int) int         { return nextDiscreteFrom(s, n) }

// --- Writable (Metropolis) ----------------------------------------------

// mutationKind selects the proposal distribution a WritableSampler's
// SmallStep applies.
type mutationKind int

const (
	MutationKelemen mutationKind = iota // exponential perturbation
	MutationGaussian
)

// mutationCoord holds the current and proposed value of one recorded
// dimension, plus how long it has gone without being perturbed.
type mutationCoord struct {
	value          float32
	proposed       float32
	lastModified   int64
	modifiedBefore bool
}

// WritableSampler is the Metropolis-mutable sample generator used by the
// MLT integrators and by path inversion. Dimensions are recorded lazily on
// first access; Seek repositions the cursor used by Put* during inversion.
type WritableSampler struct {
	rng          xorshift64
	coords       []mutationCoord
	cursor       int
	iteration    int64
	largeStep    bool
	mutationKind mutationKind
	sigma        float32 // Gaussian mutation stddev, in [0,1) units
	jumpSize     float32 // Kelemen exponential perturbation scale
}

func NewWritableSampler(baseSeed uint32, kind mutationKind) *WritableSampler {
	s := &WritableSampler{mutationKind: kind, sigma: 1.0 / 64, jumpSize: 1.0 / 16}
	s.rng.seed(splitmix64Mix(baseSeed, 0, 0))
	return s
}

func (s *WritableSampler) StartPath(pixelIndex, sampleIndex uint32) {
	s.rng.seed(splitmix64Mix(pixelIndex, sampleIndex, uint32(s.rng.state)))
	s.cursor = 0
}

func (s *WritableSampler) AdvancePath() {}

func (s *WritableSampler) ensure(i int) {
	for len(s.coords) <= i {
		v := s.rng.nextFloat()
		s.coords = append(s.coords, mutationCoord{value: v, proposed: v, lastModified: s.iteration, modifiedBefore: true})
	}
}

// Seek positions the cursor so the next Put* call writes dimension i.
func (s *WritableSampler) Seek(i int) { s.cursor = i }

func (s *WritableSampler) mutate(c *mutationCoord) float32 {
	if s.largeStep {
		return s.rng.nextFloat()
	}
	var delta float32
	switch s.mutationKind {
	case MutationGaussian:
		delta = gaussianSample(&s.rng, s.sigma)
	default:
		delta = kelemenSample(&s.rng, s.jumpSize)
	}
	v := c.value + delta
	v -= float32(math.Floor(float64(v)))
	return v
}

func (s *WritableSampler) recordedNext() float32 {
	s.ensure(s.cursor)
	c := &s.coords[s.cursor]
	if !c.modifiedBefore || c.lastModified != s.iteration {
		c.proposed = s.mutate(c)
		c.lastModified = s.iteration
		c.modifiedBefore = true
	}
	s.cursor++
	return c.proposed
}

func (s *WritableSampler) Next1D() float32 { return s.recordedNext() }
func (s *WritableSampler) Next2D() (float32, float32) {
	return s.recordedNext(), s.recordedNext()
}
func (s *WritableSampler) NextBoolean(pTrue float32) bool { return nextBooleanFrom(s, pTrue) }
func (s *WritableSampler) NextDiscrete(n int) int         { return nextDiscreteFrom(s, n) }

// Put1D writes an explicit value into the dimension at the current cursor,
// advancing it by one — used by path inversion to force a dimension to
// regenerate a specific sampled quantity.
func (s *WritableSampler) Put1D(v float32) {
	s.ensure(s.cursor)
	s.coords[s.cursor].proposed = v
	s.coords[s.cursor].modifiedBefore = true
	s.coords[s.cursor].lastModified = s.iteration
	s.cursor++
}

func (s *WritableSampler) Put2D(a, b float32) {
	s.Put1D(a)
	s.Put1D(b)
}

func (s *WritableSampler) PutBoolean(b bool) {
	if b {
		s.Put1D(0)
	} else {
		s.Put1D(0.999999)
	}
}

func (s *WritableSampler) PutDiscrete(v, n int) {
	s.Put1D((float32(v) + 0.5) / float32(n))
}

// Untracked1D consumes a value from the RNG without recording it as a
// mutable dimension (used for choices that must not participate in
// Metropolis perturbation, e.g. discrete technique selection noise).
func (s *WritableSampler) Untracked1D() float32 { return s.rng.nextFloat() }

// LargeStep configures the next mutation pass to resample every dimension
// independently and uniformly.
func (s *WritableSampler) LargeStep() { s.largeStep = true }

// SmallStep configures the next mutation pass to perturb each dimension by
// a symmetric local proposal.
func (s *WritableSampler) SmallStep() { s.largeStep = false }

// Freeze retains current values across an inversion attempt without
// perturbing any dimension — used when path inversion must regenerate a
// path from previously-accepted state.
func (s *WritableSampler) Freeze() {
	for i := range s.coords {
		s.coords[i].proposed = s.coords[i].value
		s.coords[i].lastModified = s.iteration
		s.coords[i].modifiedBefore = true
	}
	s.cursor = 0
}

// Accept commits every proposed value as the new current value and resets
// the cursor for the next path.
func (s *WritableSampler) Accept() {
	for i := range s.coords {
		s.coords[i].value = s.coords[i].proposed
	}
	s.iteration++
	s.cursor = 0
	s.largeStep = false
}

// Reject discards every proposed value, leaving current values untouched.
func (s *WritableSampler) Reject() {
	s.iteration++
	s.cursor = 0
	s.largeStep = false
}

func kelemenSample(rng *xorshift64, jumpSize float32) float32 {
	u := rng.nextFloat()
	sign := float32(1)
	if u < 0.5 {
		sign = -1
		u = 1 - 2*u
	} else {
		u = 2*u - 1
	}
	dv := jumpSize * float32(math.Exp(float64(u)*math.Log(1/float64(jumpSize))))
	return sign * dv
}

func gaussianSample(rng *xorshift64, sigma float32) float32 {
	u1 := rng.nextFloat()
	u2 := rng.nextFloat()
	if u1 < 1e-9 {
		u1 = 1e-9
	}
	r := float32(math.Sqrt(-2 * math.Log(float64(u1))))
	theta := 2 * math.Pi * u2
	return r * float32(math.Cos(float64(theta))) * sigma
}
