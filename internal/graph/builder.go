package graph

import (
	"sort"
	"time"

	"devchat/internal/vector"
)

// Builder assembles the next snapshot. Nodes accumulate incrementally;
// edges are set wholesale after each resolution pass, matching how
// relationships are recomputed from scratch per generation.
type Builder struct {
	nodes      map[string]*Node
	edges      map[Edge]struct{}
	unresolved []UnresolvedImport
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: map[string]*Node{},
		edges: map[Edge]struct{}{},
	}
}

// FromSnapshot seeds a Builder with an existing snapshot's nodes. Edges are
// not carried over; the caller re-resolves them before building.
func FromSnapshot(s *Snapshot) *Builder {
	b := NewBuilder()
	for id, n := range s.nodes {
		b.nodes[id] = n
	}
	return b
}

// AddNode inserts or replaces a node.
func (b *Builder) AddNode(n *Node) {
	b.nodes[n.ID] = n
}

// GetNode returns the staged node for an id, or nil.
func (b *Builder) GetNode(id string) *Node {
	return b.nodes[id]
}

// NodeCount returns the number of staged nodes.
func (b *Builder) NodeCount() int {
	return len(b.nodes)
}

// RemovePath drops every node whose Path equals path. Edges touching the
// removed nodes dangle until Build prunes them.
func (b *Builder) RemovePath(path string) []string {
	var removed []string
	for id, n := range b.nodes {
		if n.Path == path {
			removed = append(removed, id)
			delete(b.nodes, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// Paths returns the distinct node paths currently staged, ascending.
func (b *Builder) Paths() []string {
	seen := map[string]struct{}{}
	for _, n := range b.nodes {
		seen[n.Path] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// AddEdge stages an edge. Duplicates collapse; edges are a set.
func (b *Builder) AddEdge(e Edge) {
	b.edges[e] = struct{}{}
}

// ClearEdges drops all staged edges ahead of a resolution pass.
func (b *Builder) ClearEdges() {
	b.edges = map[Edge]struct{}{}
	b.unresolved = nil
}

// AddUnresolvedImport records an import fact that matched no project file.
func (b *Builder) AddUnresolvedImport(u UnresolvedImport) {
	b.unresolved = append(b.unresolved, u)
}

// Build produces an immutable snapshot. Edges whose endpoints are missing
// are pruned and returned so the caller can log them.
func (b *Builder) Build(generation uint64, generationID string, builtAt time.Time, vectors *vector.Set) (*Snapshot, []Edge) {
	if vectors == nil {
		vectors = vector.EmptySet()
	}

	s := &Snapshot{
		Generation:   generation,
		GenerationID: generationID,
		BuiltAt:      builtAt,
		nodes:        make(map[string]*Node, len(b.nodes)),
		out:          map[string][]Edge{},
		in:           map[string][]Edge{},
		byPath:       map[string][]string{},
		byName:       map[string][]string{},
		vectors:      vectors,
	}

	for id, n := range b.nodes {
		s.nodes[id] = n
		s.nodeIDs = append(s.nodeIDs, id)
	}
	sort.Strings(s.nodeIDs)

	for _, id := range s.nodeIDs {
		n := s.nodes[id]
		s.byPath[n.Path] = append(s.byPath[n.Path], id)
		if n.Kind != KindFile {
			s.byName[n.Name] = append(s.byName[n.Name], id)
		}
	}

	var pruned []Edge
	for e := range b.edges {
		if !s.HasNode(e.From) || !s.HasNode(e.To) {
			pruned = append(pruned, e)
			continue
		}
		s.out[e.From] = append(s.out[e.From], e)
		s.in[e.To] = append(s.in[e.To], e)
		s.edgeCount++
	}
	sort.Slice(pruned, func(i, j int) bool {
		if pruned[i].From != pruned[j].From {
			return pruned[i].From < pruned[j].From
		}
		if pruned[i].To != pruned[j].To {
			return pruned[i].To < pruned[j].To
		}
		return pruned[i].Kind < pruned[j].Kind
	})

	for id := range s.out {
		edges := s.out[id]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Kind < edges[j].Kind
		})
	}
	for id := range s.in {
		edges := s.in[id]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].From != edges[j].From {
				return edges[i].From < edges[j].From
			}
			return edges[i].Kind < edges[j].Kind
		})
	}

	s.unresolved = append([]UnresolvedImport(nil), b.unresolved...)
	sort.Slice(s.unresolved, func(i, j int) bool {
		a, c := s.unresolved[i], s.unresolved[j]
		if a.FromPath != c.FromPath {
			return a.FromPath < c.FromPath
		}
		if a.Line != c.Line {
			return a.Line < c.Line
		}
		return a.Module < c.Module
	})

	return s, pruned
}
