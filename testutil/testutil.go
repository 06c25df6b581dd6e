package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
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

// Float64 returns, as a float64, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Bytes returns a slice of n random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytesLocked(n)
}

// bytesLocked is the internal implementation (caller must hold lock).
func (r *RNG) bytesLocked(n int) []byte {
	p := make([]byte, n)
	r.rand.Read(p) //nolint:errcheck // never fails
	return p
}

// Keys generates num distinct non-empty keys of at most maxLen bytes.
// Lengths vary so range scans cross keys of different sizes.
func (r *RNG) Keys(num, maxLen int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, num)
	keys := make([][]byte, 0, num)

	for len(keys) < num {
		n := 1 + r.rand.Intn(maxLen)
		k := r.bytesLocked(n)
		if _, ok := seen[string(k)]; ok {
			continue
		}
		seen[string(k)] = struct{}{}
		keys = append(keys, k)
	}

	return keys
}

// Values generates num values of at most maxLen bytes.
// Unlike keys, values may be empty and may repeat.
func (r *RNG) Values(num, maxLen int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := make([][]byte, num)
	for i := range num {
		values[i] = r.bytesLocked(r.rand.Intn(maxLen + 1))
	}

	return values
}

// IDs generates num distinct uint64 element IDs.
func (r *RNG) IDs(num int) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]struct{}, num)
	ids := make([]uint64, 0, num)

	for len(ids) < num {
		id := r.rand.Uint64()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

// Sequences generates num sequence numbers uniformly in [0, maxSeq).
func (r *RNG) Sequences(num int, maxSeq uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seqs := make([]uint64, num)
	for i := range num {
		seqs[i] = r.rand.Uint64() % maxSeq
	}

	return seqs
}

// OrderedKeys generates num distinct keys whose byte order matches their
// index order. Useful for asserting scan order without sorting in the test.
func (r *RNG) OrderedKeys(num int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([][]byte, num)
	for i := range num {
		k := make([]byte, 8+4)
		binary.BigEndian.PutUint64(k, uint64(i))
		r.rand.Read(k[8:]) //nolint:errcheck // never fails
		keys[i] = k
	}

	return keys
}

// Zipf returns a pseudo-random number in [0,n) following a Zipfian
// distribution with exponent s. Small indices are sampled most often.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	// Compute normalization constant (harmonic number with exponent s)
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Sample from uniform and use inverse transform
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// ZipfSequences generates num sequence numbers in [0, maxSeq) with a
// Zipfian bias towards low values (when s=1.5, ~20% of the range holds
// ~80% of the samples). Models workloads where old sequences dominate.
func (r *RNG) ZipfSequences(num int, maxSeq uint64, s float64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Sample a coarse Zipf bucket, then spread uniformly inside it so
	// maxSeq can exceed the tractable harmonic-sum range.
	const granularity = 1024

	buckets := granularity
	if maxSeq < granularity {
		buckets = int(maxSeq)
	}
	width := maxSeq / uint64(buckets)
	if width == 0 {
		width = 1
	}

	seqs := make([]uint64, num)
	for i := range num {
		base := uint64(r.zipfLocked(buckets, s)) * width
		seq := base + r.rand.Uint64()%width
		if seq >= maxSeq {
			seq = maxSeq - 1
		}
		seqs[i] = seq
	}

	return seqs
}

// NamedKeys generates num distinct printable keys with the given prefix.
// Keys sort in index order.
func NamedKeys(prefix string, num int) [][]byte {
	keys := make([][]byte, num)
	for i := range num {
		keys[i] = fmt.Appendf(nil, "%s%08d", prefix, i)
	}

	return keys
}
