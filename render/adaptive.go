package render

import "sort"

// adaptiveMinSPP is the sample count below which every tile is treated as
// needing more samples unconditionally (no variance estimate is trusted yet).
const adaptiveMinSPP = 16

// ComputeWeights fills each record's Weight from its Error(), clamped at the
// 95th percentile error across all tiles, then dilates the weight field with
// a two-pass 4-neighborhood max (forward then backward) to avoid speckled
// sampling density. grid is row-major tilesX x tilesY.
func ComputeWeights(grid []*SampleRecord, tilesX, tilesY int) {
	if len(grid) == 0 {
		return
	}

	errs := make([]float32, len(grid))
	allBelowMin := true
	for i, r := range grid {
		if r.SampleCount < adaptiveMinSPP {
			errs[i] = 1 // full weight until the tile has enough samples to trust
			continue
		}
		allBelowMin = false
		errs[i] = r.Error()
	}

	clamp := percentile95(errs)
	for i, r := range grid {
		e := errs[i]
		if !allBelowMin && e > clamp {
			e = clamp
		}
		r.Weight = e
	}

	dilatePass(grid, tilesX, tilesY, false)
	dilatePass(grid, tilesX, tilesY, true)
}

func percentile95(vals []float32) float32 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float32(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(0.95 * float32(len(sorted)-1))
	return sorted[idx]
}

// dilatePass runs one max-over-4-neighborhood sweep against a fixed
// snapshot of the pre-pass weights, so a single call only ever spreads a
// tile's weight by one cell — it never chains across cells updated earlier
// in the same sweep. backward==false compares each tile against its
// up/left neighbor from the snapshot; backward==true against down/right.
// Calling both directions approximates a single radius-1 dilation from any
// of the four cardinal neighbors in two passes instead of four.
func dilatePass(grid []*SampleRecord, tilesX, tilesY int, backward bool) {
	idx := func(x, y int) int { return y*tilesX + x }
	snapshot := make([]float32, len(grid))
	for i, r := range grid {
		snapshot[i] = r.Weight
	}

	visit := func(x, y int) {
		i := idx(x, y)
		max := snapshot[i]
		for _, n := range neighborCoords(x, y, tilesX, tilesY, backward) {
			if w := snapshot[idx(n[0], n[1])]; w > max {
				max = w
			}
		}
		grid[i].Weight = max
	}

	for y := 0; y < tilesY; y++ {
		for x := 0; x < tilesX; x++ {
			visit(x, y)
		}
	}
}

func neighborCoords(x, y, tilesX, tilesY int, backward bool) [][2]int {
	var out [][2]int
	if !backward {
		if x > 0 {
			out = append(out, [2]int{x - 1, y})
		}
		if y > 0 {
			out = append(out, [2]int{x, y - 1})
		}
		return out
	}
	if x < tilesX-1 {
		out = append(out, [2]int{x + 1, y})
	}
	if y < tilesY-1 {
		out = append(out, [2]int{x, y + 1})
	}
	return out
}

// DistributeSamples assigns NextSampleCount to every tile proportional to
// its (dilated) Weight, consuming a total budget of `budget` samples, with
// stratified fractional carryover: each tile's carryover fraction
// accumulates and emits an extra sample once it crosses 1, guaranteeing
// sum(NextSampleCount) == budget + len(grid) since every tile gets at least
// one sample regardless of weight.
func DistributeSamples(grid []*SampleRecord, budget int) {
	if len(grid) == 0 {
		return
	}
	total := float32(0)
	for _, r := range grid {
		total += r.Weight
	}
	for _, r := range grid {
		r.NextSampleCount = 1 // every tile receives at least one sample
		if total <= 0 {
			continue
		}
		share := r.Weight / total * float32(budget)
		whole := uint32(share)
		frac := share - float32(whole)

		carry := float32(r.CarryoverNumer) / float32(1<<16)
		carry += frac
		if carry >= 1 {
			whole++
			carry -= 1
		}
		r.CarryoverNumer = uint32(carry * float32(1<<16))
		r.NextSampleCount += whole
	}
}
