package query

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"devchat/internal/config"
	"devchat/internal/errors"
	"devchat/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.JSONFormat,
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newMemoryEngine builds an indexed engine without persistence.
func newMemoryEngine(t *testing.T, root string) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Index.Persist = false
	cfg.Watch.Enabled = false

	e, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })

	if _, err := e.Rescan(context.Background()); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	return e
}

// callChainFixture is two files where b.py imports a.py and calls foo.
func callChainFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "a.py", "def foo():\n    return 1\n")
	writeSource(t, root, "b.py", "from a import foo\n\ndef bar():\n    foo()\n")
	return root
}

// storeFixture has one write-side and one read-side store access.
func storeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "store.py", `def save_user(user):
    cursor.execute("INSERT INTO users VALUES (?)", user)

def load_user(user_id):
    row = conn.fetchone()
    return row
`)
	writeSource(t, root, "util.py", "def greet():\n    return \"hello\"\n")
	return root
}

func TestNewEngineMissingRoot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Persist = false

	_, err := NewEngine(filepath.Join(t.TempDir(), "missing"), cfg, testLogger())
	if err == nil {
		t.Fatal("expected error for nonexistent root")
	}
	if !errors.HasCode(err, errors.RootNotFound) {
		t.Errorf("error code = %v, want ROOT_NOT_FOUND", errors.CodeOf(err))
	}
}

func TestQueryImpactAnalysis(t *testing.T) {
	e := newMemoryEngine(t, callChainFixture(t))

	res := e.Query(context.Background(), "What breaks if I change a.py?")
	if res.Intent != IntentImpactAnalysis || res.NotFound {
		t.Fatalf("result = %+v", res)
	}
	if res.Target != "a.py" {
		t.Errorf("target = %s", res.Target)
	}
	if res.Impact == nil || len(res.Impact.Direct) != 1 || res.Impact.Direct[0].NodeID != "b.py" {
		t.Errorf("impact = %+v", res.Impact)
	}
}

func TestQueryImpactUnknownFileIsTypedNotFound(t *testing.T) {
	e := newMemoryEngine(t, callChainFixture(t))

	res := e.Query(context.Background(), "What is affected if I change zzz.py?")
	if res.Intent != IntentImpactAnalysis {
		t.Errorf("intent = %s", res.Intent)
	}
	if !res.NotFound || res.Message == "" {
		t.Errorf("expected typed not-found, got %+v", res)
	}
	if res.Impact != nil {
		t.Errorf("impact should be absent, got %+v", res.Impact)
	}
}

func TestQueryCallersInvalidatedByRename(t *testing.T) {
	root := callChainFixture(t)
	e := newMemoryEngine(t, root)

	res := e.Query(context.Background(), "Which functions call foo()?")
	if res.Intent != IntentFindCallers || res.NotFound {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Callers) != 1 || res.Callers[0].NodeID != "b.py" {
		t.Fatalf("callers = %+v", res.Callers)
	}

	// rename the definition out from under the index
	writeSource(t, root, "a.py", "def renamed():\n    return 1\n")
	if _, err := e.Rescan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gen := e.Stats().Generation; gen != 2 {
		t.Errorf("generation = %d", gen)
	}

	res = e.Query(context.Background(), "Which functions call foo()?")
	if !res.NotFound {
		t.Errorf("stale symbol should be a typed not-found, got %+v", res)
	}
	if len(res.Callers) != 0 {
		t.Errorf("callers = %+v", res.Callers)
	}
}

func TestQueryStoreWrites(t *testing.T) {
	e := newMemoryEngine(t, storeFixture(t))

	res := e.Query(context.Background(), "Which functions write to the database?")
	if res.Intent != IntentStoreInteractions || res.NotFound {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Stores.Writes) != 1 || res.Stores.Writes[0].Name != "save_user" {
		t.Errorf("writes = %+v", res.Stores.Writes)
	}
	if len(res.Stores.Reads) != 0 {
		t.Errorf("write-narrowed query leaked reads: %+v", res.Stores.Reads)
	}
}

func TestStoreInteractionsNarrowing(t *testing.T) {
	e := newMemoryEngine(t, storeFixture(t))

	reads := e.StoreInteractions("reads")
	if len(reads.Reads) != 1 || reads.Reads[0].Name != "load_user" {
		t.Errorf("reads = %+v", reads.Reads)
	}
	if len(reads.Writes) != 0 {
		t.Errorf("writes = %+v", reads.Writes)
	}

	both := e.StoreInteractions("")
	if len(both.Reads) != 1 || len(both.Writes) != 1 {
		t.Errorf("both = %+v", both)
	}
}

func TestQueryFindDefinition(t *testing.T) {
	e := newMemoryEngine(t, storeFixture(t))

	res := e.Query(context.Background(), "Where is save_user defined?")
	if res.Intent != IntentFindDefinition || res.NotFound {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Definitions) != 1 || res.Definitions[0].ID != "store.py:function:save_user" {
		t.Errorf("definitions = %+v", res.Definitions)
	}

	res = e.Query(context.Background(), "Where is vanish defined?")
	if !res.NotFound {
		t.Errorf("expected typed not-found, got %+v", res)
	}
}

func TestQuerySemanticSearchFallback(t *testing.T) {
	e := newMemoryEngine(t, storeFixture(t))

	res := e.Query(context.Background(), "save user")
	if res.Intent != IntentSemanticSearch || res.NotFound {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Matches) == 0 {
		t.Fatal("no matches")
	}
	if res.Matches[0].Path != "store.py" {
		t.Errorf("top match = %+v", res.Matches[0])
	}
	found := false
	for _, m := range res.Matches {
		if m.Name == "save_user" {
			found = true
		}
	}
	if !found {
		t.Errorf("save_user missing from matches: %+v", res.Matches)
	}
}

func TestSearchWithoutEmbedder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Persist = false
	cfg.Vector.Enabled = false

	root := t.TempDir()
	writeSource(t, root, "a.py", "def foo():\n    pass\n")
	e, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })
	if _, err := e.Rescan(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err = e.Search(context.Background(), "anything", 5)
	if !errors.HasCode(err, errors.EmbeddingUnavailable) {
		t.Errorf("error code = %v, want EMBEDDING_UNAVAILABLE", errors.CodeOf(err))
	}

	// the query surface degrades to a typed not-found instead
	res := e.Query(context.Background(), "user account cleanup")
	if res.Intent != IntentSemanticSearch || !res.NotFound {
		t.Errorf("result = %+v", res)
	}
}

func TestGetNodeResolutionForms(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.py", "def foo():\n    return 1\n")
	writeSource(t, root, "sub/c.py", "def helper():\n    pass\n")
	e := newMemoryEngine(t, root)

	cases := []struct {
		ref  string
		want string
	}{
		{"a.py:function:foo", "a.py:function:foo"},
		{"a.py::foo", "a.py:function:foo"},
		{"sub/c.py", "sub/c.py"},
		{"c.py", "sub/c.py"},
		{"foo", "a.py:function:foo"},
		{"helper", "sub/c.py:function:helper"},
	}
	for _, tc := range cases {
		node, err := e.GetNode(tc.ref)
		if err != nil {
			t.Errorf("GetNode(%q): %v", tc.ref, err)
			continue
		}
		if node.ID != tc.want {
			t.Errorf("GetNode(%q) = %s, want %s", tc.ref, node.ID, tc.want)
		}
	}

	for _, ref := range []string{"nope", "a.py::nope", ""} {
		if _, err := e.GetNode(ref); !errors.HasCode(err, errors.QueryNotFound) {
			t.Errorf("GetNode(%q) error = %v, want QUERY_NOT_FOUND", ref, err)
		}
	}
}

func TestImpactByReference(t *testing.T) {
	e := newMemoryEngine(t, callChainFixture(t))

	result, err := e.Impact("a.py")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Direct) != 1 || result.Direct[0].NodeID != "b.py" {
		t.Errorf("impact of a.py = %+v", result)
	}

	// symbol-level impact resolves through the bare name
	result, err = e.Impact("foo")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Direct) != 1 || result.Direct[0].Relation != "called_by" {
		t.Errorf("impact of foo = %+v", result)
	}

	if _, err := e.Impact("missing.py"); !errors.HasCode(err, errors.QueryNotFound) {
		t.Errorf("error = %v, want QUERY_NOT_FOUND", err)
	}
}

func TestFileInfo(t *testing.T) {
	e := newMemoryEngine(t, callChainFixture(t))

	info, err := e.FileInfo("b.py")
	if err != nil {
		t.Fatal(err)
	}
	if info.File.ID != "b.py" {
		t.Errorf("file = %+v", info.File)
	}
	if len(info.Symbols) != 1 || info.Symbols[0].Name != "bar" {
		t.Errorf("symbols = %+v", info.Symbols)
	}
	if len(info.Dependencies) != 1 || info.Dependencies[0].NodeID != "a.py" {
		t.Errorf("dependencies = %+v", info.Dependencies)
	}
	if len(info.Dependents) != 0 {
		t.Errorf("dependents = %+v", info.Dependents)
	}

	if _, err := e.FileInfo("zzz.py"); !errors.HasCode(err, errors.QueryNotFound) {
		t.Errorf("error = %v, want QUERY_NOT_FOUND", err)
	}
}

func TestEnsureIndexedScansOnce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Persist = false

	root := t.TempDir()
	writeSource(t, root, "a.py", "def foo():\n    pass\n")
	e, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })

	if gen := e.Stats().Generation; gen != 0 {
		t.Fatalf("generation before = %d", gen)
	}
	if err := e.EnsureIndexed(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := e.Stats()
	if first.Generation != 1 {
		t.Fatalf("generation = %d", first.Generation)
	}

	if err := e.EnsureIndexed(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := e.Stats(); got.GenerationID != first.GenerationID {
		t.Errorf("second EnsureIndexed rescanned: %s -> %s", first.GenerationID, got.GenerationID)
	}
}

func TestWarmStartFromArchive(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.py", "def foo():\n    return 1\n")
	writeSource(t, root, "b.py", "from a import foo\n\ndef bar():\n    foo()\n")

	cfg := config.DefaultConfig()
	cfg.Watch.Enabled = false

	e1, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e1.Rescan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := e1.Close(); err != nil {
		t.Fatal(err)
	}

	e2, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e2.Close() })

	// the archived generation is live before any scan
	stats := e2.Stats()
	if stats.Generation != 1 || stats.Nodes != 4 {
		t.Fatalf("warm stats = %+v", stats)
	}
	if node, err := e2.GetNode("a.py:function:foo"); err != nil || node == nil {
		t.Errorf("archived node missing: %v", err)
	}
	res := e2.Query(context.Background(), "Which functions call foo()?")
	if res.NotFound || len(res.Callers) != 1 {
		t.Errorf("warm query = %+v", res)
	}

	history, err := e2.ScanHistory(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Generation != 1 || history[0].ScanType != "full" {
		t.Errorf("history = %+v", history)
	}

	// generations stay monotonic across restarts
	report, err := e2.Rescan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Generation != 2 {
		t.Errorf("generation after warm rescan = %d", report.Generation)
	}
}

func TestSecondEngineDegradesToMemory(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.py", "def foo():\n    pass\n")

	cfg := config.DefaultConfig()
	cfg.Watch.Enabled = false

	e1, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e1.Close() })

	// the state lock is held; the second engine must still come up
	e2, err := NewEngine(root, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e2.Close() })

	history, err := e2.ScanHistory(5)
	if err != nil || history != nil {
		t.Errorf("memory-only engine should have no history, got %v, %v", history, err)
	}
	if _, err := e2.Rescan(context.Background()); err != nil {
		t.Errorf("memory-only rescan failed: %v", err)
	}
}
