// Package query routes free-text questions to the code graph and the
// vector index and exposes the engine facade used by the CLI and the HTTP
// server. Classification is a fixed first-match rule table, so the same
// question always takes the same path.
package query

import (
	"devchat/internal/graph"
)

// Intent is the recognized shape of a question.
type Intent string

const (
	// IntentImpactAnalysis asks what breaks when a file changes
	IntentImpactAnalysis Intent = "impact_analysis"
	// IntentStoreInteractions asks which symbols touch a data store
	IntentStoreInteractions Intent = "store_interactions"
	// IntentFindCallers asks who calls a named function
	IntentFindCallers Intent = "find_callers"
	// IntentFindDefinition asks where a symbol is defined
	IntentFindDefinition Intent = "find_definition"
	// IntentSemanticSearch is the free-text fallback
	IntentSemanticSearch Intent = "semantic_search"
)

// Result is the typed answer to a routed question. Exactly one payload
// field is set, selected by Intent; NotFound marks an empty answer for a
// target the snapshot does not know.
type Result struct {
	Intent   Intent `json:"intent"`
	Target   string `json:"target,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
	Message  string `json:"message,omitempty"`

	Impact      *graph.ImpactResult `json:"impact,omitempty"`
	Callers     []graph.ImpactEntry `json:"callers,omitempty"`
	Definitions []*graph.Node       `json:"definitions,omitempty"`
	Stores      *StoreInteractions  `json:"stores,omitempty"`
	Matches     []SearchMatch       `json:"matches,omitempty"`
}

// notFound builds the typed empty result for an unknown target.
func notFound(intent Intent, target, message string) *Result {
	return &Result{
		Intent:   intent,
		Target:   target,
		NotFound: true,
		Message:  message,
	}
}

// StoreInteraction is one symbol that reads or writes a data store.
type StoreInteraction struct {
	NodeID string         `json:"nodeId"`
	Name   string         `json:"name"`
	Kind   graph.NodeKind `json:"kind"`
	Path   string         `json:"path"`
}

// StoreInteractions groups store-touching symbols by access direction.
type StoreInteractions struct {
	Reads  []StoreInteraction `json:"reads"`
	Writes []StoreInteraction `json:"writes"`
}

// SearchMatch is one semantic search hit, decorated with the node's
// identity so clients can render it without a second lookup.
type SearchMatch struct {
	NodeID  string         `json:"nodeId"`
	Name    string         `json:"name,omitempty"`
	Kind    graph.NodeKind `json:"kind,omitempty"`
	Path    string         `json:"path,omitempty"`
	Score   float64        `json:"score"`
	Summary string         `json:"summary"`
}

// FileInfo describes one indexed file: its node, the symbols defined in
// it, and its import neighborhood.
type FileInfo struct {
	File         *graph.Node         `json:"file"`
	Symbols      []*graph.Node       `json:"symbols"`
	Dependencies []graph.ImpactEntry `json:"dependencies,omitempty"`
	Dependents   []graph.ImpactEntry `json:"dependents,omitempty"`
}
