package bdzhash

import (
	"bytes"
	"fmt"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/zeebo/xxh3"
)

// checkDuplicates reports ErrDuplicateKey if two keys of src are equal.
//
// Keys are bucketed by their unseeded xxHash3-128 digest; only keys with
// equal digests are compared byte for byte. Two equal keys produce equal
// hyperedges under every seed, so without this scan they would burn through
// every attempt before failing.
func checkDuplicates(src KeySource) error {
	n := src.NumKeys()
	seen := make(map[xxh3.Uint128]int, n)
	for i := range n {
		key := src.Key(i)
		h := xxh3.Hash128(key)
		if j, ok := seen[h]; ok && bytes.Equal(src.Key(j), key) {
			return fmt.Errorf("%w: keys %d and %d are both %q", bdzerrors.ErrDuplicateKey, j, i, truncateKey(key))
		}
		seen[h] = i
	}
	return nil
}

// truncateKey shortens a key for error messages.
func truncateKey(key []byte) []byte {
	const maxShown = 64
	if len(key) > maxShown {
		return key[:maxShown]
	}
	return key
}
