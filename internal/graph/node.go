// Package graph holds the code graph data model: nodes, edges, and the
// immutable snapshots readers query. One snapshot is always current; the
// indexer builds the next one and publishes it with a single atomic swap.
package graph

import "fmt"

// NodeKind classifies a graph node.
type NodeKind string

const (
	// KindFile is a source file node
	KindFile NodeKind = "file"
	// KindClass is a class or type definition
	KindClass NodeKind = "class"
	// KindFunction is a top-level function
	KindFunction NodeKind = "function"
	// KindMethod is a function defined inside a class
	KindMethod NodeKind = "method"
)

// Node is one entry in the code graph. A node is unique by
// (path, kind, name, lineStart); the id encodes path, kind and name.
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	LineStart   int      `json:"lineStart"`
	LineEnd     int      `json:"lineEnd"`
	ContentHash string   `json:"contentHash"`
	Language    string   `json:"language"`
	Signature   string   `json:"signature,omitempty"`
	Doc         string   `json:"doc,omitempty"`
}

// FileID returns the node id for a file: the canonical repo-relative path.
func FileID(path string) string {
	return path
}

// ClassID returns the node id for a class, e.g. "app/models.py:class:User".
func ClassID(path, name string) string {
	return fmt.Sprintf("%s:class:%s", path, name)
}

// FunctionID returns the node id for a top-level function,
// e.g. "app/utils.py:function:slugify".
func FunctionID(path, name string) string {
	return fmt.Sprintf("%s:function:%s", path, name)
}

// MethodID returns the node id for a method,
// e.g. "app/models.py:method:User.save".
func MethodID(path, class, name string) string {
	return fmt.Sprintf("%s:method:%s.%s", path, class, name)
}

// IDFor builds the id for a node from its fields.
func IDFor(kind NodeKind, path, container, name string) string {
	switch kind {
	case KindFile:
		return FileID(path)
	case KindClass:
		return ClassID(path, name)
	case KindFunction:
		return FunctionID(path, name)
	case KindMethod:
		return MethodID(path, container, name)
	default:
		return fmt.Sprintf("%s:%s:%s", path, kind, name)
	}
}
