package graph

import (
	"sort"

	"devchat/internal/errors"
)

// ImpactEntry is one node that would be affected by changing the start node.
type ImpactEntry struct {
	NodeID   string   `json:"nodeId"`
	Path     string   `json:"path"`
	Kind     NodeKind `json:"kind"`
	Relation string   `json:"relation"`
	Via      string   `json:"via,omitempty"`
	Distance int      `json:"distance"`
}

// ImpactResult holds the blast radius of a change to one node.
type ImpactResult struct {
	Start      string        `json:"start"`
	Direct     []ImpactEntry `json:"direct"`
	Transitive []ImpactEntry `json:"transitive"`
	TotalCount int           `json:"totalCount"`
	Truncated  bool          `json:"truncated,omitempty"`
}

// ImpactAnalysis walks reverse imports and calls edges breadth-first from
// startID. Distance 1 hits are direct, distance 2 and beyond transitive;
// each node appears once, attributed to the path it was first discovered
// through. maxVisited caps the walk; when hit, the partial result is marked
// truncated. The start node itself is never included.
func (s *Snapshot) ImpactAnalysis(startID string, maxVisited int) (*ImpactResult, error) {
	start := s.GetNode(startID)
	if start == nil {
		return nil, errors.New(errors.QueryNotFound, "node not found: "+startID).
			WithDetails(map[string]interface{}{"nodeId": startID})
	}

	result := &ImpactResult{Start: startID}
	visited := map[string]struct{}{startID: {}}
	frontier := []string{startID}
	distance := 0

	for len(frontier) > 0 && !result.Truncated {
		distance++
		var next []string

		for _, id := range frontier {
			for _, e := range s.ReverseEdges(id, ImpactEdgeKinds...) {
				if _, seen := visited[e.From]; seen {
					continue
				}
				if maxVisited > 0 && len(visited)-1 >= maxVisited {
					result.Truncated = true
					break
				}
				visited[e.From] = struct{}{}
				next = append(next, e.From)

				from := s.nodes[e.From]
				entry := ImpactEntry{
					NodeID:   e.From,
					Path:     from.Path,
					Kind:     from.Kind,
					Distance: distance,
				}
				if distance == 1 {
					entry.Relation = directRelation(e.Kind)
					result.Direct = append(result.Direct, entry)
				} else {
					entry.Relation = "transitive"
					entry.Via = id
					result.Transitive = append(result.Transitive, entry)
				}
			}
			if result.Truncated {
				break
			}
		}

		sort.Strings(next)
		frontier = next
	}

	sort.Slice(result.Direct, func(i, j int) bool {
		return result.Direct[i].NodeID < result.Direct[j].NodeID
	})
	sort.Slice(result.Transitive, func(i, j int) bool {
		a, b := result.Transitive[i], result.Transitive[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.NodeID < b.NodeID
	})

	result.TotalCount = len(result.Direct) + len(result.Transitive)
	return result, nil
}

func directRelation(kind EdgeKind) string {
	switch kind {
	case EdgeImports:
		return "imported_by"
	case EdgeCalls:
		return "called_by"
	default:
		return string(kind)
	}
}

// Dependents returns the files that import the given file node, ascending.
func (s *Snapshot) Dependents(fileID string) []ImpactEntry {
	var out []ImpactEntry
	for _, e := range s.ReverseEdges(fileID, EdgeImports) {
		from := s.nodes[e.From]
		out = append(out, ImpactEntry{
			NodeID:   e.From,
			Path:     from.Path,
			Kind:     from.Kind,
			Relation: "imported_by",
			Distance: 1,
		})
	}
	return out
}

// Dependencies returns the files the given file node imports, ascending.
func (s *Snapshot) Dependencies(fileID string) []ImpactEntry {
	var out []ImpactEntry
	for _, e := range s.ForwardEdges(fileID, EdgeImports) {
		to := s.nodes[e.To]
		out = append(out, ImpactEntry{
			NodeID:   e.To,
			Path:     to.Path,
			Kind:     to.Kind,
			Relation: "imports",
			Distance: 1,
		})
	}
	return out
}

// Callers returns every caller edge into any function or method named name.
// Results order by (callee id, caller id).
func (s *Snapshot) Callers(name string) []ImpactEntry {
	var out []ImpactEntry
	for _, callee := range s.NodesByName(name) {
		if callee.Kind != KindFunction && callee.Kind != KindMethod {
			continue
		}
		for _, e := range s.ReverseEdges(callee.ID, EdgeCalls) {
			from := s.nodes[e.From]
			out = append(out, ImpactEntry{
				NodeID:   e.From,
				Path:     from.Path,
				Kind:     from.Kind,
				Relation: "called_by",
				Via:      callee.ID,
				Distance: 1,
			})
		}
	}
	return out
}
