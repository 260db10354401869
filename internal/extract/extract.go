// Package extract parses one source file into graph nodes and raw
// relationship facts via tree-sitter. Facts stay unresolved here; the
// indexer matches them against the rest of the project. Extraction never
// fails a scan: malformed input yields a ParseError record and an empty
// extraction, and the caller moves on.
package extract

import (
	"context"
	"encoding/hex"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"lukechampine.com/blake3"

	"devchat/internal/errors"
	"devchat/internal/graph"
	"devchat/internal/patterns"
)

// ImportFact is one import statement, recorded as written. Module keeps the
// source form (dotted for Python, quoted path for Go/JS) for the resolver.
type ImportFact struct {
	Module string `json:"module"`
	Name   string `json:"name,omitempty"`
	Alias  string `json:"alias,omitempty"`
	Line   int    `json:"line"`
}

// CallFact is one call expression. Callee may be dotted ("obj.method").
type CallFact struct {
	Callee string `json:"callee"`
	Line   int    `json:"line"`
}

// InheritFact records a class extending a base, both by bare name.
type InheritFact struct {
	Class string `json:"class"`
	Base  string `json:"base"`
	Line  int    `json:"line"`
}

// StoreFact marks a function or method whose body hit a storage-access
// pattern. SymbolID is the node id of the enclosing definition.
type StoreFact struct {
	SymbolID string              `json:"symbolId"`
	Kind     patterns.AccessKind `json:"kind"`
	Pattern  string              `json:"pattern"`
	Line     int                 `json:"line"`
}

// FileExtraction is everything one file contributes: its nodes plus the raw
// facts the indexer resolves into edges. Err is set instead of nodes when
// the file could not be parsed.
type FileExtraction struct {
	Path     string              `json:"path"`
	Language string              `json:"language"`
	Node     *graph.Node         `json:"node,omitempty"`
	Classes  []*graph.Node       `json:"classes,omitempty"`
	Funcs    []*graph.Node       `json:"functions,omitempty"`
	Methods  []*graph.Node       `json:"methods,omitempty"`
	Imports  []ImportFact        `json:"imports,omitempty"`
	Calls    []CallFact          `json:"calls,omitempty"`
	Inherits []InheritFact       `json:"inherits,omitempty"`
	Stores   []StoreFact         `json:"stores,omitempty"`
	Err      *errors.EngineError `json:"error,omitempty"`
}

// Nodes returns every node of the extraction in one slice: file first, then
// classes, functions, methods.
func (fx *FileExtraction) Nodes() []*graph.Node {
	if fx.Node == nil {
		return nil
	}
	out := make([]*graph.Node, 0, 1+len(fx.Classes)+len(fx.Funcs)+len(fx.Methods))
	out = append(out, fx.Node)
	out = append(out, fx.Classes...)
	out = append(out, fx.Funcs...)
	out = append(out, fx.Methods...)
	return out
}

// Extractor turns source files into FileExtractions. Safe for use from the
// single indexer goroutine; a fresh tree-sitter parser is created per call
// so an Extractor can also be shared across tests without locking.
type Extractor struct {
	registry *Registry
	table    *patterns.Table
}

// NewExtractor creates an extractor over the given parser registry and
// storage-access pattern table. table may be nil to disable store facts.
func NewExtractor(registry *Registry, table *patterns.Table) *Extractor {
	return &Extractor{registry: registry, table: table}
}

// Extract parses one file. path must be canonical (repo-relative, forward
// slashes). A syntax error produces an extraction holding only Err; the
// returned error is non-nil only when ctx is done.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*FileExtraction, error) {
	lang, grammar, ok := e.registry.ForPath(path)
	if !ok {
		// Unsupported files are the walker's concern; reaching here means
		// the caller bypassed it. Treat as an empty extraction.
		return &FileExtraction{Path: path}, nil
	}

	fx := &FileExtraction{Path: path, Language: lang}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		fx.Err = errors.Wrap(errors.ParseError, "parse failed: "+path, err)
		return fx, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		fx.Err = errors.New(errors.ParseError, "syntax error: "+path).
			WithDetails(map[string]interface{}{"path": path, "language": lang})
		return fx, nil
	}

	fx.Node = &graph.Node{
		ID:          graph.FileID(path),
		Kind:        graph.KindFile,
		Name:        path,
		Path:        path,
		LineStart:   1,
		LineEnd:     lineCount(content),
		ContentHash: hashBytes(content),
		Language:    lang,
	}

	switch lang {
	case LangPython:
		extractPython(fx, root, content)
	case LangGo:
		extractGo(fx, root, content)
	case LangJavaScript, LangTypeScript:
		extractJavaScript(fx, root, content)
	}

	if e.table != nil {
		attachStoreFacts(fx, e.table.Scan(content))
	}

	return fx, nil
}

// attachStoreFacts maps pattern-table line matches onto the innermost
// enclosing function or method. Module-level hits have no symbol to blame
// and are dropped.
func attachStoreFacts(fx *FileExtraction, matches []patterns.LineMatch) {
	if len(matches) == 0 {
		return
	}
	symbols := make([]*graph.Node, 0, len(fx.Funcs)+len(fx.Methods))
	symbols = append(symbols, fx.Funcs...)
	symbols = append(symbols, fx.Methods...)

	for _, m := range matches {
		var owner *graph.Node
		for _, sym := range symbols {
			if m.Line < sym.LineStart || m.Line > sym.LineEnd {
				continue
			}
			if owner == nil || sym.LineStart > owner.LineStart {
				owner = sym
			}
		}
		if owner == nil {
			continue
		}
		fx.Stores = append(fx.Stores, StoreFact{
			SymbolID: owner.ID,
			Kind:     m.Kind,
			Pattern:  m.Pattern,
			Line:     m.Line,
		})
	}
}

// newSymbolNode fills the common node fields from a tree-sitter definition
// node. The content hash covers the definition's own source slice, so an
// unchanged definition hashes identically across rescans.
func newSymbolNode(kind graph.NodeKind, path, container, name, lang string, def *sitter.Node, content []byte) *graph.Node {
	return &graph.Node{
		ID:          graph.IDFor(kind, path, container, name),
		Kind:        kind,
		Name:        name,
		Path:        path,
		LineStart:   int(def.StartPoint().Row) + 1,
		LineEnd:     int(def.EndPoint().Row) + 1,
		ContentHash: hashBytes(content[def.StartByte():def.EndByte()]),
		Language:    lang,
		Signature:   firstLine(def, content),
	}
}

// firstLine returns the definition's opening line, trimmed. Long one-liners
// are cut off so signatures stay displayable.
func firstLine(node *sitter.Node, content []byte) string {
	text := content[node.StartByte():node.EndByte()]
	for i, b := range text {
		if b == '\n' {
			return strings.TrimSpace(string(text[:i]))
		}
	}
	if len(text) > 200 {
		return strings.TrimSpace(string(text[:200])) + "..."
	}
	return strings.TrimSpace(string(text))
}

func hashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func lineCount(content []byte) int {
	if len(content) == 0 {
		return 1
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	if content[len(content)-1] == '\n' {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// nodeText returns the source text of a node.
func nodeText(node *sitter.Node, content []byte) string {
	return node.Content(content)
}

// eachChild invokes fn for every direct child of node.
func eachChild(node *sitter.Node, fn func(child *sitter.Node)) {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			fn(child)
		}
	}
}

// findAll walks the subtree and returns nodes whose type is in types,
// in document order.
func findAll(root *sitter.Node, types ...string) []*sitter.Node {
	var result []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		for _, t := range types {
			if n.Type() == t {
				result = append(result, n)
				break
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return result
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// dedupeCalls drops exact duplicate call facts produced by revisiting the
// same expression (e.g. a call nested in another call's argument list is
// seen once; identical calls on one line collapse).
func dedupeCalls(calls []CallFact) []CallFact {
	seen := make(map[CallFact]struct{}, len(calls))
	out := calls[:0]
	for _, c := range calls {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
