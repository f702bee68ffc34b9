package graph

import (
	"fmt"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
)

// DateParseError reports an edge whose date cannot be parsed while the
// graph tracks first-seen dates.
type DateParseError struct {
	A, B string
	Date string
	Err  error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("invalid date %q on edge %s -- %s: %v", e.Date, e.A, e.B, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

func dateAttributes(date string) (VertexDates, int64, error) {
	t, err := common.ParseDate(date)
	if err != nil {
		return VertexDates{}, 0, err
	}
	secs := t.Unix()
	days := secs / 86400
	if secs%86400 < 0 {
		days--
	}
	return VertexDates{FullDate: date, Year: t.Year(), Days: int(days)}, secs, nil
}

type firstSeen struct {
	dates VertexDates
	secs  int64
}

// Merge adds edges to current and returns it. When current is nil a new
// graph is created, carrying first-seen dates if trackDates is set.
//
// Vertices are resolved by label and created on first sight; a new vertex
// takes the earliest date among the batch edges touching it. Edge weights are summed into
// any existing edge, so merging successive batches into the same graph is
// cumulative.
//
// With date tracking every edge date is validated before the graph is
// touched, so a DateParseError leaves current unchanged.
func Merge(current *Graph, edges []common.CoOccurrenceEdge, trackDates bool) (*Graph, error) {
	if current == nil {
		current = New(Attributes{Dates: trackDates})
	}
	withDates := current.attrs.Dates

	// earliest holds, per label not yet in the graph, the earliest date of
	// the batch edges touching it.
	var earliest map[string]firstSeen
	if withDates {
		earliest = make(map[string]firstSeen)
		for _, edge := range edges {
			d, secs, err := dateAttributes(edge.Date)
			if err != nil {
				return current, &DateParseError{A: edge.A, B: edge.B, Date: edge.Date, Err: err}
			}
			if edge.A == edge.B {
				continue
			}
			for _, label := range [2]string{edge.A, edge.B} {
				if _, exists := current.index[label]; exists {
					continue
				}
				if prev, ok := earliest[label]; !ok || secs < prev.secs {
					earliest[label] = firstSeen{dates: d, secs: secs}
				}
			}
		}
	}

	for _, edge := range edges {
		if edge.A == edge.B {
			continue
		}
		a, createdA := current.resolveVertex(edge.A)
		b, createdB := current.resolveVertex(edge.B)
		if withDates {
			if createdA {
				d := earliest[edge.A].dates
				current.vertices[a].Dates = &d
			}
			if createdB {
				d := earliest[edge.B].dates
				current.vertices[b].Dates = &d
			}
		}

		ei := current.resolveEdge(a, b)
		current.edges[ei].Weight += edge.Weight
	}

	return current, nil
}

// AttachDescriptors sets the descriptor of every vertex from descriptors,
// keyed by vertex label. Vertices without an entry get an empty descriptor.
func AttachDescriptors(g *Graph, descriptors map[string]common.Descriptor) {
	g.attrs.Descriptors = true
	for i := range g.vertices {
		d, ok := descriptors[g.vertices[i].Label]
		vd := &VertexDescriptor{Annotations: []string{}, Keywords: []string{}}
		if ok {
			vd.Annotations = append(vd.Annotations, d.Annotations...)
			vd.Keywords = append(vd.Keywords, d.Keywords...)
			vd.CitedByCount = d.CitedByCount
		}
		g.vertices[i].Descriptor = vd
	}
}

// Builder owns the growing graph of one network type across windows.
type Builder struct {
	trackDates bool
	graph      *Graph
}

// NewBuilder returns a builder whose graph is created lazily on the first
// merge.
func NewBuilder(trackDates bool) *Builder {
	return &Builder{trackDates: trackDates}
}

// Adopt replaces the growing graph, e.g. with one loaded from the cache.
func (b *Builder) Adopt(g *Graph) {
	b.graph = g
}

// Merge folds one window's edges into the growing graph. On error the
// growing graph is left as it was.
func (b *Builder) Merge(edges []common.CoOccurrenceEdge, descriptors map[string]common.Descriptor) error {
	g, err := Merge(b.graph, edges, b.trackDates)
	if err != nil {
		return err
	}
	if descriptors != nil {
		AttachDescriptors(g, descriptors)
	}
	b.graph = g
	return nil
}

// Snapshot returns an independent copy of the growing graph, or an empty
// graph when nothing was merged yet.
func (b *Builder) Snapshot() *Graph {
	if b.graph == nil {
		return New(Attributes{Dates: b.trackDates})
	}
	return b.graph.Clone()
}
