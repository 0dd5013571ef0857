// Package bdz implements the BDZ minimal perfect hash core: hypergraph
// construction over a key set, peeling, 2-bit label assignment and the
// two-level rank structure that compacts critical vertices into [0, n).
package bdz

import (
	"fmt"
	"math"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/primes"
)

// Algorithm constants
const (
	// DefaultLoadFactor is c, the vertices-per-key overhead. Random 3-uniform
	// hypergraphs with m >= 1.222n vertices are acyclic with high probability.
	DefaultLoadFactor = 1.23

	// DefaultRankBits is b: one rank table entry per 2^b vertices.
	DefaultRankBits = 7

	// MinRankBits and MaxRankBits bound b. Values outside fall back to the
	// default.
	MinRankBits = 3
	MaxRankBits = 10

	// DefaultMaxAttempts bounds seed retries before giving up.
	DefaultMaxAttempts = 1000

	// MaxKeys bounds n so that m = 3r stays below 2^32.
	MaxKeys = 1 << 31

	// goldenGamma is the SplitMix64 increment, used to spread attempt numbers.
	goldenGamma = 0x9e3779b97f4a7c15
)

// PartitionSize returns r, the size of each of the three vertex partitions
// for n keys at load factor c: the first prime >= max(ceil(c*n/3), 11).
// The hypergraph has m = 3r vertices.
func PartitionSize(n uint32, c float64) (uint32, error) {
	if !(c > 1.0) || math.IsInf(c, 0) {
		return 0, fmt.Errorf("%w: got %v", bdzerrors.ErrInvalidLoadFactor, c)
	}
	raw := math.Ceil(c * float64(n) / 3)
	if raw >= math.MaxUint32/3 {
		return 0, fmt.Errorf("%w: %d keys at load factor %v", bdzerrors.ErrTooManyKeys, n, c)
	}
	r := primes.NextPrime(uint64(raw))
	if r >= math.MaxUint32/3 {
		return 0, fmt.Errorf("%w: %d keys at load factor %v", bdzerrors.ErrTooManyKeys, n, c)
	}
	return uint32(r), nil
}

// NormalizeRankBits returns b if it lies in [MinRankBits, MaxRankBits] and
// DefaultRankBits otherwise.
func NormalizeRankBits(b uint32) uint32 {
	if b < MinRankBits || b > MaxRankBits {
		return DefaultRankBits
	}
	return b
}

// AttemptSeed derives the hash seed of build attempt k from the base seed.
// Attempt seeds are pairwise distinct for a fixed base seed.
func AttemptSeed(seed uint64, attempt int) uint64 {
	return splitmix64(seed ^ uint64(attempt)*goldenGamma)
}

// splitmix64 is the SplitMix64 finalizer, a bijection on uint64.
func splitmix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
