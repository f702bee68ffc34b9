package analysis

import (
	"sort"

	"github.com/OFFIS-RIT/sciradar/pkg/graph"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
)

// Bin is one histogram bucket: how many vertices (or edges) have Value.
type Bin struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// Metrics is the structural summary of one snapshot. Values that are
// undefined for the snapshot (e.g. density with fewer than two vertices)
// are nil and omitted from the report.
type Metrics struct {
	VertexCount           int      `json:"vertex_count"`
	EdgeCount             int      `json:"edge_count"`
	Density               *float64 `json:"density,omitempty"`
	DegreeHistogram       []Bin    `json:"degree_histogram"`
	DegreeAverage         *float64 `json:"degree_average,omitempty"`
	EdgeWeightAverage     *float64 `json:"edge_weight_average,omitempty"`
	EdgeWeightHistogram   []Bin    `json:"edge_weight_histogram"`
	ClusteringCoefficient float64  `json:"clustering_coefficient"`
	SimilarityToPrevious  *float64 `json:"similarity_to_previous,omitempty"`
}

// Result maps a window label to the metrics of its snapshot.
type Result map[string]Metrics

// Snapshot is a labeled graph state, as produced for one window.
type Snapshot struct {
	Label string
	Graph *graph.Graph
}

func ptr(v float64) *float64 {
	return &v
}

// Analyze computes the metrics of g. When previous is not nil the
// similarity against it is included.
func Analyze(g *graph.Graph, previous *graph.Graph) Metrics {
	m := Metrics{
		VertexCount: g.NumVertices(),
		EdgeCount:   g.NumEdges(),
	}

	logger.Debug("[Analysis] Getting degree histogram")
	degrees := make([]int, 0, m.VertexCount)
	for v := range g.Vertices() {
		degrees = append(degrees, g.Degree(v.ID))
	}
	m.DegreeHistogram = histogram(degrees)
	m.DegreeAverage = average(degrees)

	logger.Debug("[Analysis] Getting edge weights")
	edgeWeights := make([]int, 0, m.EdgeCount)
	for e := range g.Edges() {
		edgeWeights = append(edgeWeights, e.Weight)
	}
	m.EdgeWeightHistogram = histogram(edgeWeights)
	m.EdgeWeightAverage = average(edgeWeights)

	logger.Debug("[Analysis] Getting density")
	m.Density = Density(m.VertexCount, m.EdgeCount)

	logger.Debug("[Analysis] Getting clustering coefficient")
	m.ClusteringCoefficient = ClusteringCoefficient(g)

	if previous != nil {
		logger.Debug("[Analysis] Getting similarity to previous snapshot")
		m.SimilarityToPrevious = Similarity(g, previous)
	}

	return m
}

// Density is edges / (n(n-1)/2), undefined for fewer than two vertices.
func Density(vertices, edges int) *float64 {
	if vertices < 2 {
		return nil
	}
	possible := float64(vertices) * float64(vertices-1) / 2
	return ptr(float64(edges) / possible)
}

func average(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return ptr(float64(sum) / float64(len(values)))
}

func histogram(values []int) []Bin {
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
	}
	bins := make([]Bin, 0, len(counts))
	for v, c := range counts {
		bins = append(bins, Bin{Value: v, Count: c})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Value < bins[j].Value })
	return bins
}

// ClusteringCoefficient is the global clustering coefficient of the
// unweighted topology: closed triplets over all connected triplets. It is 0
// when the graph has no triplet.
func ClusteringCoefficient(g *graph.Graph) float64 {
	triplets := 0
	triangles := 0
	for v := range g.Vertices() {
		neighbors := g.Neighbors(v.ID)
		d := len(neighbors)
		triplets += d * (d - 1) / 2

		// count each triangle once, from its smallest vertex
		for i, u := range neighbors {
			if u < v.ID {
				continue
			}
			for _, w := range neighbors[i+1:] {
				if w < v.ID {
					continue
				}
				if g.Adjacent(u, w) {
					triangles++
				}
			}
		}
	}
	if triplets == 0 {
		return 0
	}
	return float64(3*triangles) / float64(triplets)
}

// Similarity is the weighted Jaccard index between the edge weight vectors
// of a and b over the union of their edges, matched by vertex labels. It is
// undefined when both graphs are edgeless.
func Similarity(a, b *graph.Graph) *float64 {
	type pair [2]string
	label := func(g *graph.Graph, e graph.Edge) pair {
		x, y := g.Vertex(e.Source).Label, g.Vertex(e.Target).Label
		if x > y {
			x, y = y, x
		}
		return pair{x, y}
	}

	bWeights := make(map[pair]int, b.NumEdges())
	for e := range b.Edges() {
		bWeights[label(b, e)] = e.Weight
	}

	var minSum, maxSum float64
	for e := range a.Edges() {
		p := label(a, e)
		wa := e.Weight
		wb, ok := bWeights[p]
		if ok {
			delete(bWeights, p)
		}
		minSum += float64(min(wa, wb))
		maxSum += float64(max(wa, wb))
	}
	for _, wb := range bWeights {
		maxSum += float64(wb)
	}

	if maxSum == 0 {
		return nil
	}
	return ptr(minSum / maxSum)
}
