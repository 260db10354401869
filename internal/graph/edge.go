package graph

// EdgeKind classifies a relationship between two nodes.
type EdgeKind string

const (
	// EdgeImports links a file to a file it imports
	EdgeImports EdgeKind = "imports"
	// EdgeCalls links a file to a function, method or class it calls
	EdgeCalls EdgeKind = "calls"
	// EdgeInherits links a class to its base class
	EdgeInherits EdgeKind = "inherits"
	// EdgeReadsStore links a function or method to its file when it reads a data store
	EdgeReadsStore EdgeKind = "reads_store"
	// EdgeWritesStore links a function or method to its file when it writes a data store
	EdgeWritesStore EdgeKind = "writes_store"
)

// Edge is a directed relationship between two nodes. The set of edges whose
// From node lives in a given file is recomputed wholesale when that file
// changes.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// StoreEdgeKinds are the edge kinds produced by the pattern table.
var StoreEdgeKinds = []EdgeKind{EdgeReadsStore, EdgeWritesStore}

// ImpactEdgeKinds are the edge kinds impact analysis traverses in reverse.
var ImpactEdgeKinds = []EdgeKind{EdgeImports, EdgeCalls}
