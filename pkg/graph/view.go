package graph

// ViewNode is a vertex in a d3 force-layout view.
type ViewNode struct {
	ID           int      `json:"id"`
	Label        string   `json:"label"`
	Year         int      `json:"year,omitempty"`
	CitedByCount int      `json:"citedByCount,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// ViewLink is an edge in a d3 force-layout view.
type ViewLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Weight int `json:"weight"`
}

// View is the nodes/links document consumed by the network viewer.
type View struct {
	Nodes []ViewNode `json:"nodes"`
	Links []ViewLink `json:"links"`
}

// BuildView renders g keeping only edges with weight >= minWeight and the
// vertices they touch. Node ids are renumbered densely.
func BuildView(g *Graph, minWeight int) View {
	view := View{Nodes: []ViewNode{}, Links: []ViewLink{}}
	remap := make(map[int]int)

	node := func(id int) int {
		if n, ok := remap[id]; ok {
			return n
		}
		v := g.vertices[id]
		n := ViewNode{ID: len(view.Nodes), Label: v.Label}
		if v.Dates != nil {
			n.Year = v.Dates.Year
		}
		if v.Descriptor != nil {
			n.CitedByCount = v.Descriptor.CitedByCount
			n.Keywords = v.Descriptor.Keywords
		}
		view.Nodes = append(view.Nodes, n)
		remap[id] = n.ID
		return n.ID
	}

	for _, e := range g.edges {
		if e.Weight < minWeight {
			continue
		}
		view.Links = append(view.Links, ViewLink{
			Source: node(e.Source),
			Target: node(e.Target),
			Weight: e.Weight,
		})
	}

	return view
}
