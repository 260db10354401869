package index

import (
	"path"
	"sort"
	"strings"

	"devchat/internal/extract"
	"devchat/internal/graph"
	"devchat/internal/paths"
	"devchat/internal/patterns"
)

// resolver matches the raw facts of every extracted file against the rest
// of the project and stages the resulting edges. Resolution is a global
// pass: it sees all files at once, so a one-file change can still produce
// edges into files that did not change.
type resolver struct {
	extractions map[string]*extract.FileExtraction
	paths       []string // parse-ok file paths, ascending
	classes     map[string][]*graph.Node
	functions   map[string][]*graph.Node
	methods     map[string][]*graph.Node
}

func newResolver(extractions map[string]*extract.FileExtraction) *resolver {
	r := &resolver{
		extractions: extractions,
		classes:     map[string][]*graph.Node{},
		functions:   map[string][]*graph.Node{},
		methods:     map[string][]*graph.Node{},
	}
	for p, fx := range extractions {
		if fx.Node == nil {
			continue
		}
		r.paths = append(r.paths, p)
		for _, n := range fx.Classes {
			r.classes[n.Name] = append(r.classes[n.Name], n)
		}
		for _, n := range fx.Funcs {
			r.functions[n.Name] = append(r.functions[n.Name], n)
		}
		for _, n := range fx.Methods {
			r.methods[n.Name] = append(r.methods[n.Name], n)
		}
	}
	sort.Strings(r.paths)
	for _, table := range []map[string][]*graph.Node{r.classes, r.functions, r.methods} {
		for _, nodes := range table {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
		}
	}
	return r
}

// resolveEdges recomputes the full edge set from the extraction map and
// stages it on the builder, replacing whatever was there.
func resolveEdges(b *graph.Builder, extractions map[string]*extract.FileExtraction) {
	b.ClearEdges()
	r := newResolver(extractions)
	for _, p := range r.paths {
		fx := r.extractions[p]
		r.resolveImports(b, fx)
		r.resolveCalls(b, fx)
		r.resolveInherits(b, fx)
		r.resolveStores(b, fx)
	}
}

func (r *resolver) resolveImports(b *graph.Builder, fx *extract.FileExtraction) {
	for _, imp := range fx.Imports {
		variations := importVariations(fx.Language, fx.Path, imp)
		target := ""
		for _, v := range variations {
			if target = r.firstFileWithSuffix(v, fx.Path); target != "" {
				break
			}
		}
		if target == "" {
			b.AddUnresolvedImport(graph.UnresolvedImport{
				FromPath: fx.Path,
				Module:   imp.Module,
				Line:     imp.Line,
			})
			continue
		}
		b.AddEdge(graph.Edge{
			From: graph.FileID(fx.Path),
			To:   graph.FileID(target),
			Kind: graph.EdgeImports,
		})
	}
}

// firstFileWithSuffix returns the lexicographically smallest project file
// ending with the candidate path, excluding the importing file itself.
func (r *resolver) firstFileWithSuffix(candidate, self string) string {
	if candidate == "" {
		return ""
	}
	for _, p := range r.paths {
		if p == self {
			continue
		}
		if paths.HasSuffixPath(p, candidate) {
			return p
		}
	}
	return ""
}

// importVariations expands an import fact into candidate file paths in
// priority order. Relative modules resolve against the importing file's
// directory; the rest match by path suffix.
func importVariations(lang, fromPath string, imp extract.ImportFact) []string {
	module := imp.Module
	if module == "" {
		return nil
	}
	switch lang {
	case extract.LangPython:
		return pythonVariations(fromPath, module, imp.Name)
	case extract.LangGo:
		// import paths carry a module prefix the repo-relative file paths
		// lack; try progressively shorter suffixes, most specific first
		segs := strings.Split(module, "/")
		base := segs[len(segs)-1]
		vars := make([]string, 0, 2*len(segs))
		for i := 0; i < len(segs); i++ {
			prefix := strings.Join(segs[i:], "/")
			vars = append(vars, prefix+".go", prefix+"/"+base+".go")
		}
		return vars
	case extract.LangJavaScript, extract.LangTypeScript:
		return scriptVariations(lang, fromPath, module)
	}
	return nil
}

func pythonVariations(fromPath, module, name string) []string {
	if strings.HasPrefix(module, ".") {
		dots := 0
		for dots < len(module) && module[dots] == '.' {
			dots++
		}
		dir := path.Dir(fromPath)
		for i := 1; i < dots; i++ {
			dir = path.Dir(dir)
		}
		rest := strings.ReplaceAll(module[dots:], ".", "/")
		if rest == "" {
			if name == "" || name == "*" {
				return nil
			}
			rest = name
		}
		base := path.Join(dir, rest)
		return []string{base + ".py", base + "/__init__.py"}
	}
	base := strings.ReplaceAll(module, ".", "/")
	vars := []string{base + ".py", base + "/__init__.py"}
	if name != "" && name != "*" {
		vars = append(vars, base+"/"+name+".py")
	}
	return vars
}

var scriptExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}

func scriptVariations(lang, fromPath, module string) []string {
	resolved := module
	if module == "." || module == ".." ||
		strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		resolved = path.Join(path.Dir(fromPath), module)
	}
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(resolved, ext) {
			return []string{resolved}
		}
	}
	exts := []string{".ts", ".tsx", ".js", ".jsx"}
	if lang == extract.LangJavaScript {
		exts = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"}
	}
	vars := make([]string, 0, 2*len(exts))
	for _, ext := range exts {
		vars = append(vars, resolved+ext)
	}
	for _, ext := range exts {
		vars = append(vars, resolved+"/index"+ext)
	}
	return vars
}

func (r *resolver) resolveCalls(b *graph.Builder, fx *extract.FileExtraction) {
	from := graph.FileID(fx.Path)
	for _, call := range fx.Calls {
		for _, target := range r.callTargets(call.Callee, fx.Path) {
			b.AddEdge(graph.Edge{From: from, To: target.ID, Kind: graph.EdgeCalls})
		}
	}
}

// callTargets resolves a callee name to definition nodes. Bare names try
// functions before methods; dotted names try the head as a class before
// falling back to methods named like the last segment. Same-file
// definitions shadow the rest of the project; an ambiguous name yields
// every remaining candidate.
func (r *resolver) callTargets(callee, fromPath string) []*graph.Node {
	if head, tail, dotted := splitCallee(callee); dotted {
		if classes := r.classes[head]; len(classes) > 0 {
			return classes
		}
		return preferSameFile(r.methods[tail], fromPath)
	}
	if targets := preferSameFile(r.functions[callee], fromPath); len(targets) > 0 {
		return targets
	}
	return preferSameFile(r.methods[callee], fromPath)
}

func splitCallee(callee string) (head, tail string, dotted bool) {
	i := strings.Index(callee, ".")
	if i < 0 {
		return "", "", false
	}
	return callee[:i], callee[strings.LastIndex(callee, ".")+1:], true
}

// preferSameFile narrows candidates to the caller's file when any live
// there; otherwise all candidates stand.
func preferSameFile(candidates []*graph.Node, fromPath string) []*graph.Node {
	var local []*graph.Node
	for _, c := range candidates {
		if c.Path == fromPath {
			local = append(local, c)
		}
	}
	if len(local) > 0 {
		return local
	}
	return candidates
}

func (r *resolver) resolveInherits(b *graph.Builder, fx *extract.FileExtraction) {
	for _, inh := range fx.Inherits {
		fromID := graph.ClassID(fx.Path, inh.Class)
		base := inh.Base
		if i := strings.LastIndex(base, "."); i >= 0 {
			base = base[i+1:]
		}
		for _, target := range preferSameFile(r.classes[base], fx.Path) {
			if target.ID == fromID {
				continue
			}
			b.AddEdge(graph.Edge{From: fromID, To: target.ID, Kind: graph.EdgeInherits})
		}
	}
}

func (r *resolver) resolveStores(b *graph.Builder, fx *extract.FileExtraction) {
	fileID := graph.FileID(fx.Path)
	for _, s := range fx.Stores {
		kind := graph.EdgeReadsStore
		if s.Kind == patterns.Write {
			kind = graph.EdgeWritesStore
		}
		b.AddEdge(graph.Edge{From: s.SymbolID, To: fileID, Kind: kind})
	}
}
