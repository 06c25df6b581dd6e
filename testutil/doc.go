// Package testutil provides testing utilities for strata.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random source plus generators for
// the inputs strata's layers consume: byte keys and values, element
// IDs and sequence numbers.
//
// # Random Data Generation
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.Keys(100, 32)     // distinct keys, at most 32 bytes
//	vals := rng.Values(100, 256)  // values, at most 256 bytes
//	ids := rng.IDs(1000)          // distinct uint64 element IDs
//
// # Skewed Workloads
//
//	bucket := rng.Zipf(100, 1.2)            // hot-bucket pick in [0, 100)
//	seqs := rng.ZipfSequences(1000, 1<<20, 1.2)
package testutil
