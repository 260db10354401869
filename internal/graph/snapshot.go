package graph

import (
	"sort"
	"strings"
	"time"

	"devchat/internal/vector"
)

// UnresolvedImport is an import fact that matched no project file. These are
// diagnostics; they never become edges.
type UnresolvedImport struct {
	FromPath string `json:"fromPath"`
	Module   string `json:"module"`
	Line     int    `json:"line"`
}

// Snapshot is one immutable generation of the code graph plus its vector
// set. Readers hold a snapshot and query it without locks; nothing in a
// published snapshot is ever mutated.
type Snapshot struct {
	Generation   uint64
	GenerationID string
	BuiltAt      time.Time

	nodes     map[string]*Node
	nodeIDs   []string
	out       map[string][]Edge
	in        map[string][]Edge
	byPath    map[string][]string
	byName    map[string][]string
	edgeCount int

	vectors    *vector.Set
	unresolved []UnresolvedImport
}

// EmptySnapshot returns generation zero with no nodes.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		nodes:   map[string]*Node{},
		out:     map[string][]Edge{},
		in:      map[string][]Edge{},
		byPath:  map[string][]string{},
		byName:  map[string][]string{},
		vectors: vector.EmptySet(),
		BuiltAt: time.Time{},
	}
}

// GetNode returns the node for an id, or nil.
func (s *Snapshot) GetNode(id string) *Node {
	return s.nodes[id]
}

// HasNode reports whether the id exists in this snapshot.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// NodeIDs returns all node ids in ascending order. Callers must not mutate.
func (s *Snapshot) NodeIDs() []string {
	return s.nodeIDs
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int {
	return len(s.nodeIDs)
}

// EdgeCount returns the number of edges.
func (s *Snapshot) EdgeCount() int {
	return s.edgeCount
}

// FileCount returns the number of file nodes.
func (s *Snapshot) FileCount() int {
	n := 0
	for _, id := range s.nodeIDs {
		if s.nodes[id].Kind == KindFile {
			n++
		}
	}
	return n
}

// Files returns the paths of all file nodes in ascending order.
func (s *Snapshot) Files() []string {
	var files []string
	for _, id := range s.nodeIDs {
		if s.nodes[id].Kind == KindFile {
			files = append(files, s.nodes[id].Path)
		}
	}
	return files
}

// NodesByPath returns every node whose Path equals path, id-ascending.
func (s *Snapshot) NodesByPath(path string) []*Node {
	ids := s.byPath[path]
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes
}

// NodesByName returns every non-file node with the given name, id-ascending.
func (s *Snapshot) NodesByName(name string) []*Node {
	ids := s.byName[name]
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes
}

// FindFileBySuffix resolves a file reference like "models.py" or
// "app/models.py" to the lexicographically smallest matching file node.
func (s *Snapshot) FindFileBySuffix(suffix string) *Node {
	suffix = strings.TrimPrefix(suffix, "/")
	for _, id := range s.nodeIDs {
		n := s.nodes[id]
		if n.Kind != KindFile {
			continue
		}
		if n.Path == suffix || strings.HasSuffix(n.Path, "/"+suffix) {
			return n
		}
	}
	return nil
}

// ForwardEdges returns edges leaving id, optionally filtered by kind.
// Order is (To, Kind) ascending.
func (s *Snapshot) ForwardEdges(id string, kinds ...EdgeKind) []Edge {
	return filterEdges(s.out[id], kinds)
}

// ReverseEdges returns edges arriving at id, optionally filtered by kind.
// Order is (From, Kind) ascending.
func (s *Snapshot) ReverseEdges(id string, kinds ...EdgeKind) []Edge {
	return filterEdges(s.in[id], kinds)
}

// Edges returns every edge in the snapshot ordered by (From, To, Kind).
func (s *Snapshot) Edges() []Edge {
	all := make([]Edge, 0, s.edgeCount)
	for _, id := range s.nodeIDs {
		all = append(all, s.out[id]...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].From != all[j].From {
			return all[i].From < all[j].From
		}
		if all[i].To != all[j].To {
			return all[i].To < all[j].To
		}
		return all[i].Kind < all[j].Kind
	})
	return all
}

// Vectors returns the snapshot's vector set.
func (s *Snapshot) Vectors() *vector.Set {
	return s.vectors
}

// UnresolvedImports returns import facts that matched no project file,
// ordered by (FromPath, Line, Module).
func (s *Snapshot) UnresolvedImports() []UnresolvedImport {
	return s.unresolved
}

func filterEdges(edges []Edge, kinds []EdgeKind) []Edge {
	if len(kinds) == 0 {
		out := make([]Edge, len(edges))
		copy(out, edges)
		return out
	}
	var out []Edge
	for _, e := range edges {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
