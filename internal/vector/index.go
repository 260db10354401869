// Package vector implements the semantic index: an immutable set of
// embedded code summaries queried by cosine similarity. The index never
// computes embeddings itself; the indexer passes them in.
package vector

import (
	"fmt"
	"sort"
)

// Record pairs a node with its embedding and the summary text that produced it.
type Record struct {
	NodeID    string    `json:"nodeId"`
	Embedding []float32 `json:"embedding"`
	Summary   string    `json:"summary"`
}

// Match is one semantic search hit.
type Match struct {
	NodeID  string  `json:"nodeId"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// Set is an immutable vector index. A Set belongs to exactly one snapshot;
// mutation happens through a Builder which produces a new Set.
type Set struct {
	records []Record // sorted by NodeID
	byID    map[string]int
	dims    int
}

// EmptySet returns a Set with no records.
func EmptySet() *Set {
	return &Set{byID: map[string]int{}}
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.records)
}

// Dimensions returns the embedding width, 0 when empty.
func (s *Set) Dimensions() int {
	return s.dims
}

// Get returns the record for a node id.
func (s *Set) Get(nodeID string) (Record, bool) {
	i, ok := s.byID[nodeID]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Records returns the records in node-id order. Callers must not mutate.
func (s *Set) Records() []Record {
	return s.records
}

// Query returns the k most similar records to the given embedding. k is
// capped to the set size; equal scores order by node id ascending.
func (s *Set) Query(embedding []float32, k int) []Match {
	if k <= 0 || len(s.records) == 0 {
		return nil
	}
	if k > len(s.records) {
		k = len(s.records)
	}

	matches := make([]Match, 0, len(s.records))
	for _, r := range s.records {
		matches = append(matches, Match{
			NodeID:  r.NodeID,
			Score:   RoundScore(CosineSimilarity(embedding, r.Embedding)),
			Summary: r.Summary,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].NodeID < matches[j].NodeID
	})

	return matches[:k]
}

// Builder accumulates upserts and removals and builds an immutable Set.
type Builder struct {
	records map[string]Record
	dims    int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{records: map[string]Record{}}
}

// FromSet returns a Builder seeded with an existing Set's records.
func FromSet(s *Set) *Builder {
	b := &Builder{
		records: make(map[string]Record, len(s.records)),
		dims:    s.dims,
	}
	for _, r := range s.records {
		b.records[r.NodeID] = r
	}
	return b
}

// Upsert inserts or replaces the record for a node. All embeddings in one
// set must share dimensions.
func (b *Builder) Upsert(nodeID string, embedding []float32, summary string) error {
	if len(embedding) == 0 {
		return fmt.Errorf("vector: empty embedding for %s", nodeID)
	}
	if b.dims == 0 {
		b.dims = len(embedding)
	} else if len(embedding) != b.dims {
		return fmt.Errorf("vector: dimension mismatch for %s: got %d, want %d", nodeID, len(embedding), b.dims)
	}
	b.records[nodeID] = Record{NodeID: nodeID, Embedding: embedding, Summary: summary}
	return nil
}

// Remove drops the record for a node if present.
func (b *Builder) Remove(nodeID string) {
	delete(b.records, nodeID)
}

// Has reports whether the builder holds a record for the node.
func (b *Builder) Has(nodeID string) bool {
	_, ok := b.records[nodeID]
	return ok
}

// Summary returns the stored summary for a node, if any.
func (b *Builder) Summary(nodeID string) (string, bool) {
	r, ok := b.records[nodeID]
	return r.Summary, ok
}

// Build produces the immutable Set.
func (b *Builder) Build() *Set {
	records := make([]Record, 0, len(b.records))
	for _, r := range b.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].NodeID < records[j].NodeID })

	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.NodeID] = i
	}

	dims := 0
	if len(records) > 0 {
		dims = b.dims
	}
	return &Set{records: records, byID: byID, dims: dims}
}
