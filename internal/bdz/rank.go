package bdz

import (
	"github.com/tamirms/bdzhash/internal/bits"
	"github.com/tamirms/bdzhash/internal/pattern"
)

// Table is the query-time structure: the packed labels of all 3r vertices
// plus one cumulative count of assigned labels per 2^rankBits vertices.
//
// A Table is immutable after NewTable and safe for concurrent use.
type Table struct {
	labels   []byte
	ranks    []uint32
	r        uint32
	rankBits uint32
}

// NewTable builds the rank structure over labels. labels must hold at least
// 3r packed labels; it is retained, not copied.
func NewTable(labels []byte, r, rankBits uint32) *Table {
	t := &Table{
		labels:   labels,
		r:        r,
		rankBits: rankBits,
	}
	t.ranks = buildRanks(labels, 3*r, rankBits)
	return t
}

// buildRanks returns ceil(m / 2^rankBits) entries; entry i counts the
// assigned labels among vertices [0, i<<rankBits).
func buildRanks(labels []byte, m, rankBits uint32) []uint32 {
	k := uint64(1) << rankBits
	numEntries := int((uint64(m) + k - 1) / k)
	ranks := make([]uint32, numEntries)

	bytesPerEntry := int(k / 4)
	remaining := bits.LabelBytes(m)
	offset := 0
	var count uint32
	for i := 1; i < numEntries; i++ {
		nbytes := min(remaining, bytesPerEntry)
		for _, b := range labels[offset : offset+nbytes] {
			count += uint32(pattern.ByteTable[b])
		}
		remaining -= nbytes
		offset += nbytes
		ranks[i] = count
	}
	return ranks
}

// Rank returns the number of assigned vertices before v.
func (t *Table) Rank(v uint32) uint32 {
	entry := v >> t.rankBits
	rank := t.ranks[entry]

	// Whole bytes between the entry start and v.
	begin := (entry << t.rankBits) >> 2
	end := v >> 2
	for _, b := range t.labels[begin:end] {
		rank += uint32(pattern.ByteTable[b])
	}

	// Labels of v's own byte that precede it.
	for u := end << 2; u < v; u++ {
		if bits.GetLabel(t.labels, u) != bits.Unassigned {
			rank++
		}
	}
	return rank
}

// Vertex returns the critical vertex selected by the key's hash words: the
// one at position (g[v0] + g[v1] + g[v2]) mod 3 of its edge.
func (t *Table) Vertex(h0, h1, h2 uint32) uint32 {
	e := Edge(h0, h1, h2, t.r)
	sum := uint32(bits.GetLabel(t.labels, e[0])) +
		uint32(bits.GetLabel(t.labels, e[1])) +
		uint32(bits.GetLabel(t.labels, e[2]))
	return e[sum%3]
}

// Lookup returns the minimal perfect hash value of a key's hash words.
func (t *Table) Lookup(h0, h1, h2 uint32) uint32 {
	return t.Rank(t.Vertex(h0, h1, h2))
}

// Labels returns the packed label array.
func (t *Table) Labels() []byte {
	return t.labels
}

// PartitionSize returns r.
func (t *Table) PartitionSize() uint32 {
	return t.r
}

// NumVertices returns m = 3r.
func (t *Table) NumVertices() uint32 {
	return 3 * t.r
}

// RankBits returns b.
func (t *Table) RankBits() uint32 {
	return t.rankBits
}

// NumAssigned counts the assigned vertices, which equals the number of keys
// for a table produced by Solve.
func (t *Table) NumAssigned() uint32 {
	m := t.NumVertices()
	if m == 0 {
		return 0
	}
	last := m - 1
	n := t.Rank(last)
	if bits.GetLabel(t.labels, last) != bits.Unassigned {
		n++
	}
	return n
}

// SizeBits returns the in-memory size of the query structure in bits.
func (t *Table) SizeBits() uint64 {
	return uint64(len(t.labels))*8 + uint64(len(t.ranks))*32
}
