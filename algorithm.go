package bdzhash

import (
	"fmt"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/hashfn"
)

// HashFamily identifies the seeded hash that maps a key to the three
// vertices of its hyperedge. This is stored in the file header.
type HashFamily uint16

const (
	// HashXXH3 splits one seeded XXH3-128 digest into three words.
	HashXXH3 = HashFamily(hashfn.XXH3)

	// HashMurmur3 splits one MurmurHash3 x64-128 digest. Only the low 32
	// bits of the seed take effect.
	HashMurmur3 = HashFamily(hashfn.Murmur3)

	// HashJenkins uses the three state words of Bob Jenkins' lookup2 hash.
	// Only the low 32 bits of the seed take effect.
	HashJenkins = HashFamily(hashfn.Jenkins)
)

// String returns the family name.
func (f HashFamily) String() string {
	return hashfn.Family(f).String()
}

// ParseHashFamily maps a family name ("xxh3", "murmur3", "jenkins") to its
// HashFamily.
func ParseHashFamily(name string) (HashFamily, error) {
	f, ok := hashfn.Parse(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", bdzerrors.ErrUnknownHashFamily, name)
	}
	return HashFamily(f), nil
}

// hashFunc returns the family's hash function.
func (f HashFamily) hashFunc() (hashfn.Func, error) {
	fn, ok := hashfn.Lookup(hashfn.Family(f))
	if !ok {
		return nil, fmt.Errorf("%w: id %d", bdzerrors.ErrUnknownHashFamily, uint16(f))
	}
	return fn, nil
}
