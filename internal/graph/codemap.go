package graph

// CodeMapNode is a node in the visualization projection.
type CodeMapNode struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name"`
}

// CodeMapLink is an edge in the visualization projection.
type CodeMapLink struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// CodeMap is a flattened view of the graph for visualization clients.
type CodeMap struct {
	Nodes []CodeMapNode `json:"nodes"`
	Links []CodeMapLink `json:"links"`
}

// CodeMap projects the snapshot into node and link lists, both in
// deterministic order.
func (s *Snapshot) CodeMap() *CodeMap {
	m := &CodeMap{
		Nodes: make([]CodeMapNode, 0, s.NodeCount()),
		Links: make([]CodeMapLink, 0, s.EdgeCount()),
	}
	for _, id := range s.nodeIDs {
		n := s.nodes[id]
		m.Nodes = append(m.Nodes, CodeMapNode{ID: n.ID, Kind: n.Kind, Name: n.Name})
	}
	for _, e := range s.Edges() {
		m.Links = append(m.Links, CodeMapLink{Source: e.From, Target: e.To, Kind: e.Kind})
	}
	return m
}
