package graph

import (
	"iter"
)

// Attributes selects which optional vertex attributes a Graph carries.
// It is fixed when the graph is created.
type Attributes struct {
	Dates       bool
	Descriptors bool
}

// VertexDates records when a vertex was first seen. It is set once, when
// the vertex is created, and never updated.
type VertexDates struct {
	FullDate string `json:"fulldate"`
	Year     int    `json:"year"`
	Days     int    `json:"days"`
}

// VertexDescriptor carries the aggregated description of a cited reference.
type VertexDescriptor struct {
	Annotations  []string `json:"annotations"`
	Keywords     []string `json:"keywords"`
	CitedByCount int      `json:"citedByCount"`
}

// Vertex is a uniquely labeled node. ID is its position in the graph's
// vertex arena.
type Vertex struct {
	ID         int
	Label      string
	Dates      *VertexDates
	Descriptor *VertexDescriptor
}

// Edge is an undirected weighted link. Source < Target always holds.
type Edge struct {
	Source int
	Target int
	Weight int
}

type edgeKey struct {
	lo, hi int
}

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Graph is a simple undirected graph with at most one edge per vertex pair.
// Vertices live in an arena indexed by integer id with a side map from
// label to id, so lookups and insertions are O(1) amortized.
//
// A Graph is not safe for concurrent mutation.
type Graph struct {
	attrs     Attributes
	vertices  []Vertex
	index     map[string]int
	edges     []Edge
	edgeIndex map[edgeKey]int
	adjacency [][]int
}

// New returns an empty graph carrying the given vertex attributes.
func New(attrs Attributes) *Graph {
	return &Graph{
		attrs:     attrs,
		index:     make(map[string]int),
		edgeIndex: make(map[edgeKey]int),
	}
}

// Attributes reports which vertex attributes the graph carries.
func (g *Graph) Attributes() Attributes {
	return g.attrs
}

func (g *Graph) NumVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id int) Vertex {
	return g.vertices[id]
}

// Lookup returns the vertex labeled label.
func (g *Graph) Lookup(label string) (Vertex, bool) {
	id, ok := g.index[label]
	if !ok {
		return Vertex{}, false
	}
	return g.vertices[id], true
}

// Edge returns the edge between the vertices labeled a and b.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	ia, ok := g.index[a]
	if !ok {
		return Edge{}, false
	}
	ib, ok := g.index[b]
	if !ok {
		return Edge{}, false
	}
	ei, ok := g.edgeIndex[keyOf(ia, ib)]
	if !ok {
		return Edge{}, false
	}
	return g.edges[ei], true
}

// Vertices iterates vertices in creation order.
func (g *Graph) Vertices() iter.Seq[Vertex] {
	return func(yield func(Vertex) bool) {
		for _, v := range g.vertices {
			if !yield(v) {
				return
			}
		}
	}
}

// Edges iterates edges in creation order.
func (g *Graph) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, e := range g.edges {
			if !yield(e) {
				return
			}
		}
	}
}

// Degree returns the number of edges incident to vertex id.
func (g *Graph) Degree(id int) int {
	return len(g.adjacency[id])
}

// Neighbors returns the ids adjacent to vertex id. The slice must not be
// modified.
func (g *Graph) Neighbors(id int) []int {
	return g.adjacency[id]
}

// Adjacent reports whether vertices a and b share an edge.
func (g *Graph) Adjacent(a, b int) bool {
	_, ok := g.edgeIndex[keyOf(a, b)]
	return ok
}

// Clone returns a deep copy of g that shares no mutable state with it.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		attrs:     g.attrs,
		vertices:  make([]Vertex, len(g.vertices)),
		index:     make(map[string]int, len(g.index)),
		edges:     make([]Edge, len(g.edges)),
		edgeIndex: make(map[edgeKey]int, len(g.edgeIndex)),
		adjacency: make([][]int, len(g.adjacency)),
	}
	for i, v := range g.vertices {
		if v.Dates != nil {
			d := *v.Dates
			v.Dates = &d
		}
		if v.Descriptor != nil {
			d := VertexDescriptor{
				Annotations:  append([]string(nil), v.Descriptor.Annotations...),
				Keywords:     append([]string(nil), v.Descriptor.Keywords...),
				CitedByCount: v.Descriptor.CitedByCount,
			}
			v.Descriptor = &d
		}
		c.vertices[i] = v
	}
	for label, id := range g.index {
		c.index[label] = id
	}
	copy(c.edges, g.edges)
	for k, ei := range g.edgeIndex {
		c.edgeIndex[k] = ei
	}
	for i, adj := range g.adjacency {
		c.adjacency[i] = append([]int(nil), adj...)
	}
	return c
}

// addVertex creates a vertex for label. The caller checks it does not exist.
func (g *Graph) addVertex(label string) int {
	id := len(g.vertices)
	g.vertices = append(g.vertices, Vertex{ID: id, Label: label})
	g.index[label] = id
	g.adjacency = append(g.adjacency, nil)
	return id
}

// resolveVertex returns the id for label, creating the vertex if needed.
func (g *Graph) resolveVertex(label string) (int, bool) {
	if id, ok := g.index[label]; ok {
		return id, false
	}
	return g.addVertex(label), true
}

// resolveEdge returns the edge index between a and b, creating a zero
// weight edge if needed.
func (g *Graph) resolveEdge(a, b int) int {
	k := keyOf(a, b)
	if ei, ok := g.edgeIndex[k]; ok {
		return ei
	}
	ei := len(g.edges)
	g.edges = append(g.edges, Edge{Source: k.lo, Target: k.hi})
	g.edgeIndex[k] = ei
	g.adjacency[a] = append(g.adjacency[a], b)
	g.adjacency[b] = append(g.adjacency[b], a)
	return ei
}
