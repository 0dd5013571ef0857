package bdz

import (
	"fmt"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bits"
	"github.com/tamirms/bdzhash/internal/hashfn"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

// Keys is a random-access key set.
type Keys interface {
	NumKeys() int
	Key(i int) []byte
}

// Edge maps hash words to the key's hyperedge. Vertex i lies in the
// partition [i*r, (i+1)*r), so the three vertices are always distinct.
func Edge(h0, h1, h2, r uint32) [3]uint32 {
	return [3]uint32{h0 % r, h1%r + r, h2%r + 2*r}
}

// Solver runs build attempts over a fixed key set. The hypergraph is
// allocated once and reused across attempts.
//
// A Solver is NOT safe for concurrent use. Parallel builds create one Solver
// per worker.
type Solver struct {
	keys  Keys
	hash  hashfn.Func
	r     uint32
	graph *hypergraph.Graph
}

// NewSolver creates a solver for keys over 3r vertices.
func NewSolver(keys Keys, r uint32, hash hashfn.Func) *Solver {
	return &Solver{
		keys:  keys,
		hash:  hash,
		r:     r,
		graph: hypergraph.New(keys.NumKeys(), 3*r),
	}
}

// Solve runs one attempt with the given seed. It returns the packed 2-bit
// labels of all 3r vertices, or ErrCyclicGraph if the hypergraph does not
// peel.
func (s *Solver) Solve(seed uint64) ([]byte, error) {
	g := s.graph
	g.Reset()

	n := s.keys.NumKeys()
	for i := range n {
		h0, h1, h2 := s.hash(s.keys.Key(i), seed)
		e := Edge(h0, h1, h2, s.r)
		g.AddEdge(e[0], e[1], e[2])
	}

	if !g.Peel() {
		return nil, fmt.Errorf("%w: peeled %d of %d edges", bdzerrors.ErrCyclicGraph, len(g.Order()), n)
	}
	return assign(g), nil
}

// assign labels the vertices of a peeled graph. Edges are visited in
// reverse peeling order; at that point the critical vertex of each edge is
// still free, and it gets the label that makes the edge's label sum equal
// its position modulo 3. All other vertices keep label 3, which counts as 0
// in the sum.
func assign(g *hypergraph.Graph) []byte {
	labels := bits.NewLabels(g.NumVertices())
	visited := bits.NewBitset(g.NumVertices())

	order := g.Order()
	for i := len(order) - 1; i >= 0; i-- {
		e := order[i]
		vs := g.Edge(e)
		p := g.Critical(e)

		var sum uint32
		for j := range uint8(3) {
			if j == p {
				continue
			}
			v := vs[j]
			if !visited.Test(v) {
				bits.SetLabel(labels, v, bits.Unassigned)
				visited.Set(v)
			}
			sum += uint32(bits.GetLabel(labels, v))
		}

		crit := vs[p]
		if visited.Test(crit) {
			panic("bdz: critical vertex assigned twice")
		}
		// sum <= 6, so 6+p-sum never underflows.
		bits.SetLabel(labels, crit, uint8((6+uint32(p)-sum)%3))
		visited.Set(crit)
	}
	return labels
}
