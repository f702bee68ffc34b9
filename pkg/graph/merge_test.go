package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/cooccurrence"
)

func weights(g *Graph) map[[2]string]int {
	out := make(map[[2]string]int)
	for e := range g.Edges() {
		a, b := g.Vertex(e.Source).Label, g.Vertex(e.Target).Label
		if a > b {
			a, b = b, a
		}
		out[[2]string{a, b}] = e.Weight
	}
	return out
}

func compute(t *testing.T, records []common.Publication, trackDates bool) []common.CoOccurrenceEdge {
	t.Helper()
	edges, err := cooccurrence.Compute(context.Background(), records, common.FieldAuthors, cooccurrence.Options{TrackDates: trackDates})
	if err != nil {
		t.Fatalf("unexpected compute error: %v", err)
	}
	return edges
}

var scenario = []common.Publication{
	{ID: "P1", Date: "2016-01-10T00:00:00", Authors: []string{"A", "B"}},
	{ID: "P2", Date: "2016-02-10T00:00:00", Authors: []string{"B", "C"}},
	{ID: "P3", Date: "2016-03-10T00:00:00", Authors: []string{"A", "B", "C"}},
}

func TestMergeIncrementalEqualsAllAtOnce(t *testing.T) {
	all, err := Merge(nil, compute(t, scenario, false), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inc, err := Merge(nil, compute(t, scenario[:2], false), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inc, err = Merge(inc, compute(t, scenario[2:], false), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[[2]string]int{{"A", "B"}: 2, {"B", "C"}: 2, {"A", "C"}: 1}
	if got := weights(all); !reflect.DeepEqual(got, want) {
		t.Fatalf("all at once: got %v, want %v", got, want)
	}
	if got := weights(inc); !reflect.DeepEqual(got, want) {
		t.Fatalf("incremental: got %v, want %v", got, want)
	}
	if all.NumVertices() != 3 || inc.NumVertices() != 3 {
		t.Fatalf("expected 3 vertices, got %d and %d", all.NumVertices(), inc.NumVertices())
	}
}

func TestMergeMonotonic(t *testing.T) {
	g, err := Merge(nil, []common.CoOccurrenceEdge{
		{A: "A", B: "B", Weight: 3},
		{A: "B", B: "C", Weight: 1},
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := weights(g)
	vertices := g.NumVertices()

	g, err = Merge(g, []common.CoOccurrenceEdge{
		{A: "A", B: "B", Weight: 1},
		{A: "C", B: "D", Weight: 2},
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := weights(g)

	for pair, w := range before {
		if after[pair] < w {
			t.Fatalf("weight of %v decreased from %d to %d", pair, w, after[pair])
		}
	}
	if g.NumVertices() < vertices {
		t.Fatal("vertices were removed")
	}
	if after[[2]string{"A", "B"}] != 4 {
		t.Fatalf("expected accumulated weight 4, got %d", after[[2]string{"A", "B"}])
	}
	if g.NumEdges() != 3 {
		t.Fatalf("expected 3 edges, got %d", g.NumEdges())
	}
}

func TestMergeSkipsSelfPairs(t *testing.T) {
	g, err := Merge(nil, []common.CoOccurrenceEdge{{A: "A", B: "A", Weight: 1}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NumEdges() != 0 {
		t.Fatalf("expected no edges, got %d", g.NumEdges())
	}
}

func TestMergeFirstSeenDates(t *testing.T) {
	g, err := Merge(nil, compute(t, scenario[:2], true), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err = Merge(g, compute(t, scenario[2:], true), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		label string
		date  string
		days  int
	}{
		{label: "A", date: "2016-01-10T00:00:00", days: 16810},
		{label: "B", date: "2016-01-10T00:00:00", days: 16810},
		{label: "C", date: "2016-02-10T00:00:00", days: 16841},
	}
	for _, tt := range tests {
		v, ok := g.Lookup(tt.label)
		if !ok {
			t.Fatalf("vertex %s missing", tt.label)
		}
		if v.Dates == nil {
			t.Fatalf("vertex %s has no dates", tt.label)
		}
		if v.Dates.FullDate != tt.date || v.Dates.Year != 2016 || v.Dates.Days != tt.days {
			t.Fatalf("vertex %s: got %+v, want date %s days %d", tt.label, *v.Dates, tt.date, tt.days)
		}
	}
}

func TestMergeFirstSeenIsEarliestInBatch(t *testing.T) {
	edges := []common.CoOccurrenceEdge{
		{A: "A", B: "B", Weight: 1, Date: "2012-02-10T00:00:00"},
		{A: "B", B: "C", Weight: 1, Date: "2012-01-05T00:00:00"},
	}
	g, err := Merge(nil, edges, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"A": "2012-02-10T00:00:00",
		"B": "2012-01-05T00:00:00",
		"C": "2012-01-05T00:00:00",
	}
	for label, date := range want {
		v, ok := g.Lookup(label)
		if !ok || v.Dates == nil {
			t.Fatalf("vertex %s missing or without dates", label)
		}
		if v.Dates.FullDate != date {
			t.Fatalf("vertex %s: got first seen %s, want %s", label, v.Dates.FullDate, date)
		}
	}

	// an existing vertex keeps its date even if a later batch is older
	g, err = Merge(g, []common.CoOccurrenceEdge{{A: "A", B: "D", Weight: 1, Date: "2011-12-01T00:00:00"}}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := g.Lookup("A"); v.Dates.FullDate != "2012-02-10T00:00:00" {
		t.Fatalf("vertex A date changed to %s", v.Dates.FullDate)
	}
	if v, _ := g.Lookup("D"); v.Dates.FullDate != "2011-12-01T00:00:00" {
		t.Fatalf("vertex D: got %s", v.Dates.FullDate)
	}
}

func TestMergeWithoutDatesLeavesAttributesEmpty(t *testing.T) {
	g, err := Merge(nil, compute(t, scenario, true), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for v := range g.Vertices() {
		if v.Dates != nil {
			t.Fatalf("vertex %s unexpectedly carries dates", v.Label)
		}
	}
}

func TestMergeDateParseError(t *testing.T) {
	g, err := Merge(nil, []common.CoOccurrenceEdge{{A: "A", B: "B", Weight: 1, Date: "2016-01-01T00:00:00"}}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g, err = Merge(g, []common.CoOccurrenceEdge{
		{A: "A", B: "C", Weight: 1, Date: "2016-02-01T00:00:00"},
		{A: "C", B: "D", Weight: 1, Date: "not a date"},
	}, true)
	var dateErr *DateParseError
	if !errors.As(err, &dateErr) {
		t.Fatalf("expected DateParseError, got %v", err)
	}
	if dateErr.Date != "not a date" {
		t.Fatalf("unexpected date in error: %q", dateErr.Date)
	}
	if g.NumVertices() != 2 || g.NumEdges() != 1 {
		t.Fatalf("graph was modified by failed merge: %d vertices, %d edges", g.NumVertices(), g.NumEdges())
	}
}

func TestAttachDescriptors(t *testing.T) {
	g, err := Merge(nil, []common.CoOccurrenceEdge{{A: "R1", B: "R2", Weight: 1}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AttachDescriptors(g, map[string]common.Descriptor{
		"R1":    {Annotations: []string{"ZIKA"}, Keywords: []string{"VIRUS"}, CitedByCount: 3},
		"OTHER": {CitedByCount: 9},
	})

	r1, _ := g.Lookup("R1")
	if r1.Descriptor == nil || r1.Descriptor.CitedByCount != 3 || !reflect.DeepEqual(r1.Descriptor.Annotations, []string{"ZIKA"}) {
		t.Fatalf("unexpected descriptor for R1: %+v", r1.Descriptor)
	}
	r2, _ := g.Lookup("R2")
	if r2.Descriptor == nil || r2.Descriptor.CitedByCount != 0 || len(r2.Descriptor.Keywords) != 0 {
		t.Fatalf("expected empty descriptor for R2, got %+v", r2.Descriptor)
	}
	if !g.Attributes().Descriptors {
		t.Fatal("expected descriptor attribute to be enabled")
	}
}

func TestBuilderSnapshotIsIndependent(t *testing.T) {
	b := NewBuilder(false)
	if err := b.Merge([]common.CoOccurrenceEdge{{A: "A", B: "B", Weight: 1}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := b.Snapshot()
	if err := b.Merge([]common.CoOccurrenceEdge{{A: "A", B: "B", Weight: 1}, {A: "B", B: "C", Weight: 1}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.NumEdges() != 1 {
		t.Fatalf("snapshot changed after later merge: %d edges", snap.NumEdges())
	}
	if e, _ := snap.Edge("A", "B"); e.Weight != 1 {
		t.Fatalf("snapshot weight changed: %d", e.Weight)
	}
	if e, _ := b.Snapshot().Edge("A", "B"); e.Weight != 2 {
		t.Fatalf("expected growing weight 2, got %d", e.Weight)
	}
}

func TestBuilderEmptySnapshot(t *testing.T) {
	b := NewBuilder(true)
	g := b.Snapshot()
	if g.NumVertices() != 0 || g.NumEdges() != 0 || !g.Attributes().Dates {
		t.Fatalf("unexpected empty snapshot: %+v", g.Attributes())
	}
}
