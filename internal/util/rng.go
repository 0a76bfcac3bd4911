package util

import "math/rand"

// New returns a source for seed. The zero seed reads as 1, so an unset
// config value still yields a fixed stream.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(nonZero(seed)))
}

// JobSeed derives the seed of the i-th job handled by worker. Batch runs
// repeat for a fixed base seed and worker count.
func JobSeed(seed int64, worker, i int) int64 {
	return nonZero(seed) + int64(worker)*7919 + int64(i)
}

func nonZero(seed int64) int64 {
	if seed == 0 {
		return 1
	}
	return seed
}
