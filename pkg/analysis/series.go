package analysis

import (
	"github.com/OFFIS-RIT/sciradar/pkg/graph"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
)

// Series analyzes snapshots one at a time, in window order. Snapshots with
// no edges are skipped and the last retained snapshot is compared against
// the next one.
//
// Snapshots handed to Add must not be mutated afterwards.
type Series struct {
	result   Result
	previous *graph.Graph
	skipped  []string
}

func NewSeries() *Series {
	return &Series{result: make(Result)}
}

// Add analyzes g under label. It reports false when the snapshot was
// skipped for having no edges.
func (s *Series) Add(label string, g *graph.Graph) (Metrics, bool) {
	if g == nil || g.NumEdges() == 0 {
		logger.Debug("[Analysis] Skipping empty snapshot", "window", label)
		s.skipped = append(s.skipped, label)
		return Metrics{}, false
	}

	logger.Info("[Analysis] Analysing network", "window", label, "vertices", g.NumVertices(), "edges", g.NumEdges())
	m := Analyze(g, s.previous)
	s.result[label] = m
	s.previous = g
	return m, true
}

// Result returns the metrics collected so far.
func (s *Series) Result() Result {
	return s.result
}

// Skipped lists the labels of edgeless snapshots, in order.
func (s *Series) Skipped() []string {
	return s.skipped
}

// AnalyzeSeries analyzes ordered snapshots as a Series does.
func AnalyzeSeries(snapshots []Snapshot) Result {
	s := NewSeries()
	for _, snap := range snapshots {
		s.Add(snap.Label, snap.Graph)
	}
	return s.Result()
}
