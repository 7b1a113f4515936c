package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// GranuleSpan returns a pseudo-random byte count covering between 1 and
// maxGranules granules. The count is not granularity-aligned on purpose,
// to exercise padding.
func (r *RNG) GranuleSpan(maxGranules int, granularity uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	granules := uint64(r.rand.Intn(maxGranules)) //nolint:gosec // maxGranules > 0
	within := uint64(r.rand.Int63n(int64(granularity))) + 1
	return granules*granularity + within
}

// FillPattern fills dst with a deterministic byte pattern derived from tag,
// so copied-back buffers can be verified cheaply.
func FillPattern(dst []byte, tag byte) {
	for i := range dst {
		dst[i] = tag ^ byte(i)
	}
}

// CheckPattern reports the first index where buf deviates from the pattern
// written by FillPattern, or -1 if it matches.
func CheckPattern(buf []byte, tag byte) int {
	for i := range buf {
		if buf[i] != tag^byte(i) {
			return i
		}
	}
	return -1
}
