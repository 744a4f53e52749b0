package tensor

import (
	"math/rand"
	"sync"
)

// Package-level random source shared by Rand, Randn and the nn initializers.
// Guarded by a mutex so concurrent tensor creation stays safe; the default
// seed is fixed so runs are reproducible even when Seed is never called.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(0)) //nolint:gosec // G404: statistical use, reproducibility matters more than entropy
)

// Seed resets the package random source. Experiments call this once at
// startup so weight initialization is reproducible across runs.
func Seed(seed int64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	rng = rand.New(rand.NewSource(seed)) //nolint:gosec // G404: statistical use
}

// randFloat64 draws a uniform sample in [0, 1) from the package source.
func randFloat64() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}
