// Package hypergraph implements the 3-uniform hypergraph that BDZ builds over
// the key set, together with the peeling procedure that decides whether it is
// acyclic.
//
// The graph is arena-indexed: edges are triples of vertex indices, and each
// vertex keeps a singly linked list of its incident edges threaded through
// per-edge next pointers. There are no per-node allocations, so a Graph can be
// reset and reused across build attempts.
package hypergraph

// nullEdge terminates incident-edge lists.
const nullEdge = ^uint32(0)

// Graph is a 3-uniform hypergraph over a fixed number of vertices.
// A Graph is not safe for concurrent use.
type Graph struct {
	edges     [][3]uint32 // vertex triple per edge
	nextEdges [][3]uint32 // next incident edge of edges[e][i]'s vertex
	firstEdge []uint32    // head of each vertex's incident-edge list
	degree    []uint32    // live incident edges per vertex

	// Peeling output and scratch
	order    []uint32 // edges in peeling order
	critical []uint8  // position (0, 1, 2) of each edge's critical vertex
	queue    []uint32 // FIFO of degree-1 vertices
}

// New allocates a graph for up to maxEdges edges over numVertices vertices.
func New(maxEdges int, numVertices uint32) *Graph {
	g := &Graph{
		edges:     make([][3]uint32, 0, maxEdges),
		nextEdges: make([][3]uint32, 0, maxEdges),
		firstEdge: make([]uint32, numVertices),
		degree:    make([]uint32, numVertices),
		order:     make([]uint32, 0, maxEdges),
		critical:  make([]uint8, maxEdges),
	}
	g.Reset()
	return g
}

// Reset removes every edge, keeping allocated capacity.
func (g *Graph) Reset() {
	g.edges = g.edges[:0]
	g.nextEdges = g.nextEdges[:0]
	for i := range g.firstEdge {
		g.firstEdge[i] = nullEdge
	}
	clear(g.degree)
	g.order = g.order[:0]
	g.queue = g.queue[:0]
}

// NumVertices returns the vertex count.
func (g *Graph) NumVertices() uint32 {
	return uint32(len(g.firstEdge))
}

// AddEdge appends the edge (v0, v1, v2). The three vertices must be distinct
// and less than NumVertices.
func (g *Graph) AddEdge(v0, v1, v2 uint32) {
	e := uint32(len(g.edges))
	g.edges = append(g.edges, [3]uint32{v0, v1, v2})
	g.nextEdges = append(g.nextEdges, [3]uint32{g.firstEdge[v0], g.firstEdge[v1], g.firstEdge[v2]})
	g.firstEdge[v0] = e
	g.firstEdge[v1] = e
	g.firstEdge[v2] = e
	g.degree[v0]++
	g.degree[v1]++
	g.degree[v2]++
}

// Edge returns the vertex triple of edge e.
func (g *Graph) Edge(e uint32) [3]uint32 {
	return g.edges[e]
}

// position returns the index of v within edge e.
func (g *Graph) position(e, v uint32) int {
	switch v {
	case g.edges[e][0]:
		return 0
	case g.edges[e][1]:
		return 1
	default:
		return 2
	}
}

// removeEdge unlinks e from the incident lists of its three vertices.
func (g *Graph) removeEdge(e uint32) {
	for i, v := range g.edges[e] {
		prev := nullEdge
		prevPos := 0
		cur := g.firstEdge[v]
		for cur != e {
			if cur == nullEdge {
				panic("hypergraph: edge missing from incident list")
			}
			prev = cur
			prevPos = g.position(cur, v)
			cur = g.nextEdges[cur][prevPos]
		}
		if prev == nullEdge {
			g.firstEdge[v] = g.nextEdges[e][i]
		} else {
			g.nextEdges[prev][prevPos] = g.nextEdges[e][i]
		}
		g.degree[v]--
	}
}

// Peel repeatedly removes an edge incident to a degree-1 vertex, recording
// that vertex as the edge's critical vertex. It reports whether every edge
// was removed; false means the graph has a non-empty 2-core (a cycle).
//
// Peel consumes the graph: degrees and incident lists are left drained.
// The peeling order and critical positions stay readable through Order and
// Critical until the next Reset.
func (g *Graph) Peel() bool {
	g.order = g.order[:0]
	g.queue = g.queue[:0]
	for v, d := range g.degree {
		if d == 1 {
			g.queue = append(g.queue, uint32(v))
		}
	}

	for head := 0; head < len(g.queue); head++ {
		v := g.queue[head]
		if g.degree[v] != 1 {
			// Its last edge was peeled through another vertex.
			continue
		}
		e := g.firstEdge[v]
		g.critical[e] = uint8(g.position(e, v))
		g.order = append(g.order, e)
		g.removeEdge(e)
		for _, u := range g.edges[e] {
			if g.degree[u] == 1 {
				g.queue = append(g.queue, u)
			}
		}
	}

	return len(g.order) == len(g.edges)
}

// Order returns the edges in the order Peel removed them.
func (g *Graph) Order() []uint32 {
	return g.order
}

// Critical returns the position (0, 1 or 2) of edge e's critical vertex.
// Only meaningful for edges returned by Order.
func (g *Graph) Critical(e uint32) uint8 {
	return g.critical[e]
}
