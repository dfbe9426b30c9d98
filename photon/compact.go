package photon

// Compact moves each range's stored photons into a contiguous prefix of
// arr, in range order, by copying the tail of each later range into the
// gap left by an earlier range's unused budget. Returns the number of
// photons retained in the compacted prefix.
func Compact[T any](arr []T, ranges []Range) int {
	write := int64(0)
	for i := range ranges {
		r := &ranges[i]
		stored := r.Stored()
		if r.Start != write {
			for k := int64(0); k < stored; k++ {
				arr[write+k] = arr[r.Start+k]
			}
		}
		write += stored
	}
	return int(write)
}

// ScalePower multiplies every photon's Power field by 1/totalPaths, the
// normalization the photon-shoot phase requires (divide by number of
// emitter paths started, not photons stored).
func ScalePower(photons []Photon, totalPaths int64) {
	if totalPaths <= 0 {
		return
	}
	inv := float32(1) / float32(totalPaths)
	for i := range photons {
		photons[i].Power = photons[i].Power.Mul(inv)
	}
}

// ScaleVolumePower is ScalePower for volume photons.
func ScaleVolumePower(photons []VolumePhoton, totalPaths int64) {
	if totalPaths <= 0 {
		return
	}
	inv := float32(1) / float32(totalPaths)
	for i := range photons {
		photons[i].Power = photons[i].Power.Mul(inv)
	}
}

// ScalePathPhotonPower is ScalePower for path photons (beams/planes).
func ScalePathPhotonPower(photons []PathPhoton, totalPaths int64) {
	if totalPaths <= 0 {
		return
	}
	inv := float32(1) / float32(totalPaths)
	for i := range photons {
		photons[i].Power = photons[i].Power.Mul(inv)
	}
}
