// Package testutil provides testing utilities for vmemgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, reproducible random number generator and helpers
// for generating allocation workloads.
//
// # Reproducible Randomness
//
//	rng := testutil.NewRNG(seed)
//	n := rng.Intn(16)
//	size := rng.GranuleSpan(4, granularity)  // 1..4 granules in bytes
package testutil
