// Package bits provides low-level bit manipulation primitives.
package bits

// Unassigned is the 2-bit label of a vertex that is not critical for any edge.
const Unassigned = 3

// LabelBytes returns the number of bytes needed to pack n 2-bit labels.
func LabelBytes(n uint32) int {
	return int((uint64(n) + 3) / 4)
}

// NewLabels allocates a packed 2-bit array of n labels, all Unassigned.
func NewLabels(n uint32) []byte {
	g := make([]byte, LabelBytes(n))
	for i := range g {
		g[i] = 0xff
	}
	return g
}

// GetLabel returns the 2-bit label at position i.
// Four labels share a byte, lowest position in the lowest bits.
func GetLabel(g []byte, i uint32) uint8 {
	return (g[i>>2] >> ((i & 3) << 1)) & 3
}

// SetLabel overwrites the 2-bit label at position i.
func SetLabel(g []byte, i uint32, v uint8) {
	shift := (i & 3) << 1
	g[i>>2] = g[i>>2]&^(3<<shift) | (v&3)<<shift
}

// Bitset is a fixed-size set of uint32 positions.
type Bitset []uint64

// NewBitset allocates a Bitset able to hold positions in [0, n).
func NewBitset(n uint32) Bitset {
	return make(Bitset, (uint64(n)+63)/64)
}

// Test reports whether position i is set.
func (b Bitset) Test(i uint32) bool {
	return b[i>>6]&(1<<(i&63)) != 0
}

// Set marks position i.
func (b Bitset) Set(i uint32) {
	b[i>>6] |= 1 << (i & 63)
}

// Reset clears every position.
func (b Bitset) Reset() {
	clear(b)
}
