package graph

import (
	"testing"
	"time"
)

func fileNode(path string) *Node {
	return &Node{ID: FileID(path), Kind: KindFile, Name: path, Path: path, LineStart: 1, LineEnd: 1, Language: "python"}
}

func funcNode(path, name string) *Node {
	return &Node{ID: FunctionID(path, name), Kind: KindFunction, Name: name, Path: path, LineStart: 1, LineEnd: 2, Language: "python"}
}

func classNode(path, name string) *Node {
	return &Node{ID: ClassID(path, name), Kind: KindClass, Name: name, Path: path, LineStart: 1, LineEnd: 5, Language: "python"}
}

func build(t *testing.T, b *Builder) *Snapshot {
	t.Helper()
	s, pruned := b.Build(1, "gen-1", time.Now(), nil)
	if len(pruned) != 0 {
		t.Fatalf("unexpected pruned edges: %v", pruned)
	}
	return s
}

func TestBuilderBuildsSortedSnapshot(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("b.py"))
	b.AddNode(fileNode("a.py"))
	b.AddNode(funcNode("a.py", "foo"))
	b.AddEdge(Edge{From: "b.py", To: "a.py", Kind: EdgeImports})
	b.AddEdge(Edge{From: "b.py", To: FunctionID("a.py", "foo"), Kind: EdgeCalls})

	s := build(t, b)

	ids := s.NodeIDs()
	if len(ids) != 3 {
		t.Fatalf("NodeCount = %d, want 3", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("node ids not sorted: %v", ids)
		}
	}
	if s.EdgeCount() != 2 {
		t.Errorf("EdgeCount = %d, want 2", s.EdgeCount())
	}
}

func TestBuilderEdgeSetSemantics(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("a.py"))
	b.AddNode(fileNode("b.py"))
	e := Edge{From: "b.py", To: "a.py", Kind: EdgeImports}
	b.AddEdge(e)
	b.AddEdge(e)
	b.AddEdge(e)

	s := build(t, b)
	if s.EdgeCount() != 1 {
		t.Errorf("duplicate edges should collapse: EdgeCount = %d, want 1", s.EdgeCount())
	}
}

func TestBuildPrunesDanglingEdges(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("a.py"))
	b.AddEdge(Edge{From: "a.py", To: "ghost.py", Kind: EdgeImports})
	b.AddEdge(Edge{From: "phantom.py", To: "a.py", Kind: EdgeImports})

	s, pruned := b.Build(1, "gen-1", time.Now(), nil)

	if s.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d, want 0", s.EdgeCount())
	}
	if len(pruned) != 2 {
		t.Fatalf("pruned = %d, want 2", len(pruned))
	}
	// Every surviving edge endpoint must exist in the snapshot.
	for _, e := range s.Edges() {
		if !s.HasNode(e.From) || !s.HasNode(e.To) {
			t.Errorf("dangling edge survived: %+v", e)
		}
	}
}

func TestRemovePathDropsNodesAndEdges(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("a.py"))
	b.AddNode(funcNode("a.py", "foo"))
	b.AddNode(fileNode("b.py"))
	b.AddEdge(Edge{From: "b.py", To: "a.py", Kind: EdgeImports})
	b.AddEdge(Edge{From: "b.py", To: FunctionID("a.py", "foo"), Kind: EdgeCalls})
	first := build(t, b)

	if first.EdgeCount() != 2 {
		t.Fatalf("precondition: EdgeCount = %d, want 2", first.EdgeCount())
	}

	b2 := FromSnapshot(first)
	removed := b2.RemovePath("a.py")
	if len(removed) != 2 {
		t.Fatalf("removed = %v, want 2 ids", removed)
	}
	// Edges are re-resolved per generation; stale ones prune on build.
	b2.AddEdge(Edge{From: "b.py", To: "a.py", Kind: EdgeImports})
	second, pruned := b2.Build(2, "gen-2", time.Now(), nil)

	if second.HasNode("a.py") || second.HasNode(FunctionID("a.py", "foo")) {
		t.Error("removed path nodes still present")
	}
	if second.EdgeCount() != 0 {
		t.Errorf("edges referencing removed nodes survived: %d", second.EdgeCount())
	}
	if len(pruned) != 1 {
		t.Errorf("pruned = %d, want 1", len(pruned))
	}
	// Previous snapshot is untouched.
	if !first.HasNode("a.py") {
		t.Error("old snapshot mutated by RemovePath")
	}
}

func TestEdgeOrderingDeterministic(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("a.py"))
	b.AddNode(fileNode("b.py"))
	b.AddNode(fileNode("c.py"))
	b.AddEdge(Edge{From: "a.py", To: "c.py", Kind: EdgeImports})
	b.AddEdge(Edge{From: "a.py", To: "b.py", Kind: EdgeImports})

	s := build(t, b)

	fwd := s.ForwardEdges("a.py")
	if len(fwd) != 2 {
		t.Fatalf("ForwardEdges = %d, want 2", len(fwd))
	}
	if fwd[0].To != "b.py" || fwd[1].To != "c.py" {
		t.Errorf("forward edges not sorted by target: %+v", fwd)
	}
}

func TestEdgeKindFilter(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("a.py"))
	b.AddNode(fileNode("b.py"))
	b.AddNode(funcNode("a.py", "foo"))
	b.AddEdge(Edge{From: "b.py", To: "a.py", Kind: EdgeImports})
	b.AddEdge(Edge{From: "b.py", To: FunctionID("a.py", "foo"), Kind: EdgeCalls})

	s := build(t, b)

	if got := s.ForwardEdges("b.py", EdgeImports); len(got) != 1 || got[0].Kind != EdgeImports {
		t.Errorf("imports filter = %+v", got)
	}
	if got := s.ForwardEdges("b.py", EdgeCalls); len(got) != 1 || got[0].Kind != EdgeCalls {
		t.Errorf("calls filter = %+v", got)
	}
	if got := s.ForwardEdges("b.py"); len(got) != 2 {
		t.Errorf("unfiltered = %d, want 2", len(got))
	}
}

func TestNodeLookups(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("app/models.py"))
	b.AddNode(classNode("app/models.py", "User"))
	b.AddNode(funcNode("app/models.py", "helper"))
	b.AddNode(fileNode("app/views.py"))
	s := build(t, b)

	if got := s.NodesByPath("app/models.py"); len(got) != 3 {
		t.Errorf("NodesByPath = %d nodes, want 3", len(got))
	}
	if got := s.NodesByName("User"); len(got) != 1 || got[0].Kind != KindClass {
		t.Errorf("NodesByName(User) = %+v", got)
	}
	// File nodes are not name-indexed.
	if got := s.NodesByName("app/models.py"); len(got) != 0 {
		t.Errorf("file nodes should not appear in name index: %+v", got)
	}
	if s.FileCount() != 2 {
		t.Errorf("FileCount = %d, want 2", s.FileCount())
	}
}

func TestFindFileBySuffix(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("app/models.py"))
	b.AddNode(fileNode("lib/models.py"))
	b.AddNode(fileNode("app/views.py"))
	s := build(t, b)

	tests := []struct {
		suffix string
		want   string
	}{
		{"app/models.py", "app/models.py"},
		{"views.py", "app/views.py"},
		// Two candidates: the lexicographically smallest path wins.
		{"models.py", "app/models.py"},
		{"missing.py", ""},
		// Suffix matching is component aligned.
		{"odels.py", ""},
	}

	for _, tt := range tests {
		got := s.FindFileBySuffix(tt.suffix)
		if tt.want == "" {
			if got != nil {
				t.Errorf("FindFileBySuffix(%q) = %v, want nil", tt.suffix, got.Path)
			}
			continue
		}
		if got == nil || got.Path != tt.want {
			t.Errorf("FindFileBySuffix(%q) = %v, want %s", tt.suffix, got, tt.want)
		}
	}
}

func TestCodeMapDeterministic(t *testing.T) {
	mk := func() *Snapshot {
		b := NewBuilder()
		b.AddNode(fileNode("b.py"))
		b.AddNode(fileNode("a.py"))
		b.AddNode(funcNode("a.py", "foo"))
		b.AddEdge(Edge{From: "b.py", To: "a.py", Kind: EdgeImports})
		b.AddEdge(Edge{From: "b.py", To: FunctionID("a.py", "foo"), Kind: EdgeCalls})
		s, _ := b.Build(1, "gen", time.Now(), nil)
		return s
	}

	m1 := mk().CodeMap()
	m2 := mk().CodeMap()

	if len(m1.Nodes) != 3 || len(m1.Links) != 2 {
		t.Fatalf("CodeMap sizes = %d nodes, %d links", len(m1.Nodes), len(m1.Links))
	}
	for i := range m1.Nodes {
		if m1.Nodes[i] != m2.Nodes[i] {
			t.Errorf("node order differs at %d: %+v vs %+v", i, m1.Nodes[i], m2.Nodes[i])
		}
	}
	for i := range m1.Links {
		if m1.Links[i] != m2.Links[i] {
			t.Errorf("link order differs at %d: %+v vs %+v", i, m1.Links[i], m2.Links[i])
		}
	}
}

func TestUnresolvedImportsSorted(t *testing.T) {
	b := NewBuilder()
	b.AddNode(fileNode("a.py"))
	b.AddUnresolvedImport(UnresolvedImport{FromPath: "a.py", Module: "zlib", Line: 9})
	b.AddUnresolvedImport(UnresolvedImport{FromPath: "a.py", Module: "os", Line: 1})
	s, _ := b.Build(1, "gen", time.Now(), nil)

	u := s.UnresolvedImports()
	if len(u) != 2 {
		t.Fatalf("unresolved = %d, want 2", len(u))
	}
	if u[0].Line != 1 || u[1].Line != 9 {
		t.Errorf("unresolved not sorted by line: %+v", u)
	}
}
