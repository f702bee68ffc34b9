package graph

import (
	"encoding/json"
	"fmt"
)

const snapshotVersion = 1

type wireVertex struct {
	Label string `json:"label"`
	*VertexDates
	*VertexDescriptor
}

type wireEdge struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Weight int `json:"weight"`
}

type wireGraph struct {
	Version     int          `json:"version"`
	Dates       bool         `json:"dates"`
	Descriptors bool         `json:"descriptors"`
	Vertices    []wireVertex `json:"vertices"`
	Edges       []wireEdge   `json:"edges"`
}

// MarshalJSON encodes the graph as a self-contained snapshot.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := wireGraph{
		Version:     snapshotVersion,
		Dates:       g.attrs.Dates,
		Descriptors: g.attrs.Descriptors,
		Vertices:    make([]wireVertex, len(g.vertices)),
		Edges:       make([]wireEdge, len(g.edges)),
	}
	for i, v := range g.vertices {
		w.Vertices[i] = wireVertex{Label: v.Label, VertexDates: v.Dates, VertexDescriptor: v.Descriptor}
	}
	for i, e := range g.edges {
		w.Edges[i] = wireEdge{Source: e.Source, Target: e.Target, Weight: e.Weight}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a snapshot produced by MarshalJSON. It rejects
// snapshots that would violate the graph invariants instead of loading
// them partially.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", w.Version)
	}

	out := New(Attributes{Dates: w.Dates, Descriptors: w.Descriptors})
	for i, v := range w.Vertices {
		if _, exists := out.index[v.Label]; exists {
			return fmt.Errorf("duplicate vertex label %q", v.Label)
		}
		id := out.addVertex(v.Label)
		if w.Dates {
			if v.VertexDates == nil {
				return fmt.Errorf("vertex %d is missing dates", i)
			}
			d := *v.VertexDates
			out.vertices[id].Dates = &d
		}
		if w.Descriptors {
			d := VertexDescriptor{Annotations: []string{}, Keywords: []string{}}
			if v.VertexDescriptor != nil {
				d.Annotations = append(d.Annotations, v.Annotations...)
				d.Keywords = append(d.Keywords, v.Keywords...)
				d.CitedByCount = v.CitedByCount
			}
			out.vertices[id].Descriptor = &d
		}
	}

	n := len(out.vertices)
	for i, e := range w.Edges {
		if e.Source < 0 || e.Source >= n || e.Target < 0 || e.Target >= n {
			return fmt.Errorf("edge %d references unknown vertex", i)
		}
		if e.Source == e.Target {
			return fmt.Errorf("edge %d is a self loop", i)
		}
		if out.Adjacent(e.Source, e.Target) {
			return fmt.Errorf("edge %d duplicates an existing pair", i)
		}
		if e.Weight <= 0 {
			return fmt.Errorf("edge %d has non-positive weight %d", i, e.Weight)
		}
		ei := out.resolveEdge(e.Source, e.Target)
		out.edges[ei].Weight = e.Weight
	}

	*g = *out
	return nil
}
