package index

import (
	"fmt"
	"strings"

	"devchat/internal/extract"
	"devchat/internal/graph"
	"devchat/internal/patterns"
)

// summaryDoc pairs a node id with the text that gets embedded for it.
type summaryDoc struct {
	NodeID string
	Text   string
}

// summariesFor returns the embedding documents for one file's extraction:
// the file digest first, then one document per class, function and method.
// Store-touching symbols get a marker line appended so semantic queries
// about persistence rank them without depending on docstrings.
func summariesFor(fx *extract.FileExtraction) []summaryDoc {
	if fx.Node == nil {
		return nil
	}
	stores := storeMarkers(fx)
	docs := make([]summaryDoc, 0, 1+len(fx.Classes)+len(fx.Funcs)+len(fx.Methods))
	docs = append(docs, summaryDoc{fx.Node.ID, fileSummary(fx)})
	for _, c := range fx.Classes {
		docs = append(docs, summaryDoc{c.ID, symbolSummary(c) + stores[c.ID]})
	}
	for _, f := range fx.Funcs {
		docs = append(docs, summaryDoc{f.ID, symbolSummary(f) + stores[f.ID]})
	}
	for _, m := range fx.Methods {
		docs = append(docs, summaryDoc{m.ID, symbolSummary(m) + stores[m.ID]})
	}
	return docs
}

// storeMarkers maps symbol ids to their store-interaction marker text.
func storeMarkers(fx *extract.FileExtraction) map[string]string {
	if len(fx.Stores) == 0 {
		return nil
	}
	reads := map[string]bool{}
	writes := map[string]bool{}
	for _, s := range fx.Stores {
		if s.Kind == patterns.Write {
			writes[s.SymbolID] = true
		} else {
			reads[s.SymbolID] = true
		}
	}
	markers := make(map[string]string, len(reads)+len(writes))
	for id := range reads {
		markers[id] = "\nReads from the database store."
	}
	for id := range writes {
		markers[id] += "\nWrites to the database store."
	}
	return markers
}

// fileSummary renders a structural digest of the file: its path, imports,
// classes with bases and docstrings, and function signatures. The digest
// changes only when the file's shape changes, so unchanged files never
// re-embed.
func fileSummary(fx *extract.FileExtraction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", fx.Path)
	if len(fx.Imports) > 0 {
		b.WriteString("Imports:\n")
		for _, imp := range fx.Imports {
			b.WriteString("  " + renderImport(imp) + "\n")
		}
	}
	if len(fx.Classes) > 0 {
		b.WriteString("Classes:\n")
		for _, c := range fx.Classes {
			if bases := classBases(fx, c.Name); len(bases) > 0 {
				fmt.Fprintf(&b, "  class %s(%s)\n", c.Name, strings.Join(bases, ", "))
			} else {
				fmt.Fprintf(&b, "  class %s\n", c.Name)
			}
			if c.Doc != "" {
				fmt.Fprintf(&b, "    %s\n", c.Doc)
			}
		}
	}
	if len(fx.Funcs) > 0 {
		b.WriteString("Functions:\n")
		for _, f := range fx.Funcs {
			sig := f.Signature
			if sig == "" {
				sig = f.Name
			}
			fmt.Fprintf(&b, "  %s\n", sig)
			if f.Doc != "" {
				fmt.Fprintf(&b, "    %s\n", f.Doc)
			}
		}
	}
	return b.String()
}

func renderImport(imp extract.ImportFact) string {
	var s string
	if imp.Name != "" {
		s = fmt.Sprintf("from %s import %s", imp.Module, imp.Name)
	} else {
		s = "import " + imp.Module
	}
	if imp.Alias != "" {
		s += " as " + imp.Alias
	}
	return s
}

func classBases(fx *extract.FileExtraction, class string) []string {
	var bases []string
	for _, inh := range fx.Inherits {
		if inh.Class == class {
			bases = append(bases, inh.Base)
		}
	}
	return bases
}

// symbolSummary is the document for a definition node: its docstring when
// it has one, a one-line description otherwise.
func symbolSummary(n *graph.Node) string {
	if n.Doc != "" {
		return n.Doc
	}
	switch n.Kind {
	case graph.KindClass:
		return fmt.Sprintf("Class %s in %s", n.Name, n.Path)
	case graph.KindMethod:
		return fmt.Sprintf("Method %s in %s", n.Name, n.Path)
	default:
		return fmt.Sprintf("Function %s in %s", n.Name, n.Path)
	}
}
