// Package hashfn implements the seeded triple-hash families that map a key to
// the three vertices of its hyperedge.
//
// Every family returns three 32-bit values. Callers reduce them modulo the
// partition size r, so the three values only need to be independent and
// uniform, not of any particular range.
package hashfn

import (
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// Family identifies a triple-hash family. It is stored in the index header.
type Family uint16

const (
	// XXH3 splits one seeded XXH3-128 digest into three 32-bit words.
	XXH3 Family = 0

	// Murmur3 splits one seeded MurmurHash3 x64 128-bit digest. Only the low
	// 32 bits of the seed are used.
	Murmur3 Family = 1

	// Jenkins is Bob Jenkins' lookup2 hash in vector form: the final a, b
	// and c words of the mix. Only the low 32 bits of the seed are used.
	Jenkins Family = 2
)

// Func computes the three hash words of key under seed.
type Func func(key []byte, seed uint64) (h0, h1, h2 uint32)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case XXH3:
		return "xxh3"
	case Murmur3:
		return "murmur3"
	case Jenkins:
		return "jenkins"
	default:
		return "unknown"
	}
}

// Lookup returns the hash function of family f, or false if f is unknown.
func Lookup(f Family) (Func, bool) {
	switch f {
	case XXH3:
		return xxh3Triple, true
	case Murmur3:
		return murmur3Triple, true
	case Jenkins:
		return jenkinsTriple, true
	}
	return nil, false
}

// Parse maps a family name back to its Family.
func Parse(name string) (Family, bool) {
	for _, f := range []Family{XXH3, Murmur3, Jenkins} {
		if f.String() == name {
			return f, true
		}
	}
	return 0, false
}

func xxh3Triple(key []byte, seed uint64) (uint32, uint32, uint32) {
	h := xxh3.Hash128Seed(key, seed)
	return uint32(h.Lo), uint32(h.Lo >> 32), uint32(h.Hi)
}

func murmur3Triple(key []byte, seed uint64) (uint32, uint32, uint32) {
	lo, hi := murmur3.Sum128WithSeed(key, uint32(seed))
	return uint32(lo), uint32(lo >> 32), uint32(hi)
}
