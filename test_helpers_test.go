package bdzhash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"
)

const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG source seeded from the test name, so each test
// sees its own reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fruitKeys is a small fixed key set.
var fruitKeys = []string{"apple", "banana", "cherry", "date", "elderberry"}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := 0; j < tail; j++ {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateRandomKeys creates n distinct pseudo-random keys of keySize bytes.
// Collisions are dropped and regenerated.
func generateRandomKeys(rng *rand.Rand, n, keySize int) [][]byte {
	keys := make([][]byte, 0, n)
	seen := make(map[string]struct{}, n)
	for len(keys) < n {
		key := make([]byte, keySize)
		fillFromRNG(rng, key)
		if _, ok := seen[string(key)]; ok {
			continue
		}
		seen[string(key)] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// generateSequentialKeys creates the keys "key-0000000", "key-0000001", ...
func generateSequentialKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = fmt.Appendf(nil, "key-%07d", i)
	}
	return keys
}

// lookupFunc adapts MPHF or Index to a plain lookup.
type lookupFunc func(key []byte) uint32

func mphfLookup(f *MPHF) lookupFunc { return f.Lookup }

func indexLookup(t testing.TB, idx *Index) lookupFunc {
	return func(key []byte) uint32 {
		v, err := idx.Query(key)
		if err != nil {
			t.Fatalf("Query(%q): %v", key, err)
		}
		return v
	}
}

// verifyBijection checks that lookup maps keys one to one onto [0, len(keys)).
func verifyBijection(t testing.TB, lookup lookupFunc, keys [][]byte) []uint32 {
	t.Helper()
	n := len(keys)
	values := make([]uint32, n)
	seen := make([]int, n)
	for i := range seen {
		seen[i] = -1
	}
	for i, key := range keys {
		v := lookup(key)
		if int(v) >= n {
			t.Fatalf("key %d (%q): index %d out of range [0, %d)", i, key, v, n)
		}
		if prev := seen[v]; prev >= 0 {
			t.Fatalf("keys %d and %d both map to %d", prev, i, v)
		}
		seen[v] = i
		values[i] = v
	}
	return values
}

// verifySlots checks that slot maps keys injectively into [0, m).
func verifySlots(t testing.TB, slot lookupFunc, keys [][]byte, m uint32) {
	t.Helper()
	seen := make(map[uint32]int, len(keys))
	for i, key := range keys {
		s := slot(key)
		if s >= m {
			t.Fatalf("key %d: slot %d out of range [0, %d)", i, s, m)
		}
		if prev, ok := seen[s]; ok {
			t.Fatalf("keys %d and %d share slot %d", prev, i, s)
		}
		seen[s] = i
	}
}

// buildKeys builds an in-memory MPHF over keys and fails the test on error.
func buildKeys(t testing.TB, keys [][]byte, opts ...BuildOption) *MPHF {
	t.Helper()
	f, err := Build(t.Context(), SliceSource(keys), opts...)
	if err != nil {
		t.Fatalf("Build(%d keys): %v", len(keys), err)
	}
	return f
}

// quickBuild writes an index over keys to path through the Builder.
func quickBuild(t testing.TB, path string, keys [][]byte, opts ...BuildOption) error {
	t.Helper()
	builder, err := NewBuilder(t.Context(), path, uint64(len(keys)), opts...)
	if err != nil {
		return err
	}
	defer builder.Close()
	for _, key := range keys {
		if err := builder.AddKey(key); err != nil {
			return err
		}
	}
	return builder.Finish()
}

// buildAndOpen writes an index over keys into a temp dir and opens it.
func buildAndOpen(t testing.TB, keys [][]byte, opts ...BuildOption) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bdz")
	if err := quickBuild(t, path, keys, opts...); err != nil {
		t.Fatalf("quickBuild: %v", err)
	}
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx, path
}

// TestVerificationHelpers self-tests the key generators and the bijection check.
func TestVerificationHelpers(t *testing.T) {
	keys := generateSequentialKeys(4)

	t.Run("AcceptsPermutation", func(t *testing.T) {
		perm := map[string]uint32{"key-0000000": 2, "key-0000001": 0, "key-0000002": 3, "key-0000003": 1}
		values := verifyBijection(t, func(k []byte) uint32 { return perm[string(k)] }, keys)
		if !slices.Equal(values, []uint32{2, 0, 3, 1}) {
			t.Errorf("values = %v", values)
		}
	})

	t.Run("DistinctRandomKeys", func(t *testing.T) {
		rng := newTestRNG(t)
		keys := generateRandomKeys(rng, 1000, 2)
		sorted := slices.Clone(keys)
		slices.SortFunc(sorted, bytes.Compare)
		for i := 1; i < len(sorted); i++ {
			if bytes.Equal(sorted[i-1], sorted[i]) {
				t.Fatalf("duplicate key %x", sorted[i])
			}
		}
	})
}
