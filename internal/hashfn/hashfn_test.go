package hashfn

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

var allFamilies = []Family{XXH3, Murmur3, Jenkins}

func TestJenkinsVectors(t *testing.T) {
	tests := []struct {
		key        string
		seed       uint64
		h0, h1, h2 uint32
	}{
		{"", 0, 0x9b2ec03d, 0xdb2b69ae, 0xbd49d10d},
		{"apple", 0, 0x723b694d, 0x20065c13, 0x099eb958},
		{"apple", 15, 0x76fdc8a1, 0x2df5e7d4, 0xec263653},
		{"hello, world! 0123456789", 42, 0x749fdfc0, 0x79f02ff9, 0x29868d62},
	}
	for _, tc := range tests {
		h0, h1, h2 := jenkinsTriple([]byte(tc.key), tc.seed)
		if h0 != tc.h0 || h1 != tc.h1 || h2 != tc.h2 {
			t.Errorf("jenkins(%q, %d) = (%#08x, %#08x, %#08x), want (%#08x, %#08x, %#08x)",
				tc.key, tc.seed, h0, h1, h2, tc.h0, tc.h1, tc.h2)
		}
	}
}

func TestFamiliesDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	for _, f := range allFamilies {
		t.Run(f.String(), func(t *testing.T) {
			fn, ok := Lookup(f)
			if !ok {
				t.Fatalf("Lookup(%v) failed", f)
			}
			for range 100 {
				key := make([]byte, rng.IntN(40))
				for i := range key {
					key[i] = byte(rng.Uint32())
				}
				seed := rng.Uint64()
				a0, a1, a2 := fn(key, seed)
				b0, b1, b2 := fn(append([]byte(nil), key...), seed)
				if a0 != b0 || a1 != b1 || a2 != b2 {
					t.Fatalf("hash of %x not deterministic", key)
				}
			}
		})
	}
}

// TestFamiliesSeedSensitivity verifies that changing the seed changes the
// triple for nearly every key; a family that ignored its seed would make
// every retry rebuild the same hypergraph.
func TestFamiliesSeedSensitivity(t *testing.T) {
	for _, f := range allFamilies {
		t.Run(f.String(), func(t *testing.T) {
			fn, _ := Lookup(f)
			same := 0
			for i := range 1000 {
				key := []byte(fmt.Sprintf("key-%d", i))
				a0, a1, a2 := fn(key, 1)
				b0, b1, b2 := fn(key, 2)
				if a0 == b0 && a1 == b1 && a2 == b2 {
					same++
				}
			}
			if same > 0 {
				t.Errorf("%d of 1000 keys hash identically under seeds 1 and 2", same)
			}
		})
	}
}

// TestFamiliesSpread buckets the three words of many keys into a small range
// and checks that no bucket is badly over- or under-filled.
func TestFamiliesSpread(t *testing.T) {
	const (
		numKeys = 30000
		r       = 97
	)
	for _, f := range allFamilies {
		t.Run(f.String(), func(t *testing.T) {
			fn, _ := Lookup(f)
			var counts [3][r]int
			for i := range numKeys {
				key := []byte(fmt.Sprintf("spread/%08d", i))
				h0, h1, h2 := fn(key, 0xabcdef)
				counts[0][h0%r]++
				counts[1][h1%r]++
				counts[2][h2%r]++
			}
			expected := float64(numKeys) / r
			for word := range counts {
				for bucket, c := range counts[word] {
					if float64(c) < expected*0.7 || float64(c) > expected*1.3 {
						t.Errorf("word %d bucket %d: count %d, expected about %.0f", word, bucket, c, expected)
					}
				}
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, f := range allFamilies {
		got, ok := Parse(f.String())
		if !ok || got != f {
			t.Errorf("Parse(%q) = %v, %v; want %v, true", f.String(), got, ok, f)
		}
	}
	if _, ok := Parse("sha256"); ok {
		t.Error("Parse accepted an unknown family name")
	}
	if _, ok := Lookup(Family(99)); ok {
		t.Error("Lookup accepted an unknown family")
	}
	if Family(99).String() != "unknown" {
		t.Errorf("Family(99).String() = %q", Family(99).String())
	}
}
