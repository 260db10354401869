package storage

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"devchat/internal/graph"
	"devchat/internal/logging"
	"devchat/internal/vector"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.JSONFormat,
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
}

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	root := t.TempDir()
	db, err := Open(root, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, root
}

func buildTestSnapshot(t *testing.T, generation uint64, generationID string) *graph.Snapshot {
	t.Helper()
	b := graph.NewBuilder()
	b.AddNode(&graph.Node{
		ID: "a.py", Kind: graph.KindFile, Name: "a.py", Path: "a.py",
		LineStart: 1, LineEnd: 2, ContentHash: "aa", Language: "python",
	})
	b.AddNode(&graph.Node{
		ID: "a.py:function:foo", Kind: graph.KindFunction, Name: "foo", Path: "a.py",
		LineStart: 1, LineEnd: 2, ContentHash: "ff", Language: "python",
		Signature: "def foo():",
	})
	b.AddNode(&graph.Node{
		ID: "b.py", Kind: graph.KindFile, Name: "b.py", Path: "b.py",
		LineStart: 1, LineEnd: 3, ContentHash: "bb", Language: "python",
	})
	b.AddEdge(graph.Edge{From: "b.py", To: "a.py", Kind: graph.EdgeImports})
	b.AddEdge(graph.Edge{From: "b.py", To: "a.py:function:foo", Kind: graph.EdgeCalls})
	b.AddUnresolvedImport(graph.UnresolvedImport{FromPath: "b.py", Module: "requests", Line: 2})

	vb := vector.NewBuilder()
	if err := vb.Upsert("a.py", []float32{0.6, 0.8}, "File: a.py\n"); err != nil {
		t.Fatal(err)
	}

	snap, pruned := b.Build(generation, generationID, time.Now(), vb.Build())
	if len(pruned) > 0 {
		t.Fatalf("unexpected pruned edges: %+v", pruned)
	}
	return snap
}

func TestOpenCreatesSchema(t *testing.T) {
	db, root := openTestDB(t)

	if _, err := os.Stat(filepath.Join(root, ".devchat", dbFileName)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	version, err := db.schemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	db, _ := openTestDB(t)
	saved := buildTestSnapshot(t, 3, "gen-3")

	if err := db.SaveSnapshot(saved); err != nil {
		t.Fatal(err)
	}
	loaded, err := db.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("loaded nil snapshot")
	}

	if loaded.Generation != 3 || loaded.GenerationID != "gen-3" {
		t.Errorf("generation = %d/%s", loaded.Generation, loaded.GenerationID)
	}
	if !loaded.BuiltAt.Equal(saved.BuiltAt) {
		t.Errorf("builtAt = %s, want %s", loaded.BuiltAt, saved.BuiltAt)
	}
	if !reflect.DeepEqual(loaded.NodeIDs(), saved.NodeIDs()) {
		t.Errorf("node ids = %v, want %v", loaded.NodeIDs(), saved.NodeIDs())
	}
	if !reflect.DeepEqual(loaded.GetNode("a.py:function:foo"), saved.GetNode("a.py:function:foo")) {
		t.Errorf("node = %+v", loaded.GetNode("a.py:function:foo"))
	}
	if !reflect.DeepEqual(loaded.Edges(), saved.Edges()) {
		t.Errorf("edges = %+v, want %+v", loaded.Edges(), saved.Edges())
	}
	if !reflect.DeepEqual(loaded.UnresolvedImports(), saved.UnresolvedImports()) {
		t.Errorf("unresolved = %+v", loaded.UnresolvedImports())
	}
	rec, ok := loaded.Vectors().Get("a.py")
	if !ok {
		t.Fatal("vector record missing after roundtrip")
	}
	if !reflect.DeepEqual(rec.Embedding, []float32{0.6, 0.8}) || rec.Summary != "File: a.py\n" {
		t.Errorf("vector record = %+v", rec)
	}
}

func TestLoadSnapshotEmpty(t *testing.T) {
	db, _ := openTestDB(t)
	snap, err := db.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Errorf("expected no snapshot, got generation %d", snap.Generation)
	}
}

func TestSaveSnapshotReplacesPrior(t *testing.T) {
	db, _ := openTestDB(t)
	if err := db.SaveSnapshot(buildTestSnapshot(t, 1, "gen-1")); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot(buildTestSnapshot(t, 2, "gen-2")); err != nil {
		t.Fatal(err)
	}

	loaded, err := db.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Generation != 2 {
		t.Errorf("generation = %d, want 2", loaded.Generation)
	}

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("stored snapshots = %d, want 1", count)
	}
}

func TestReopenKeepsData(t *testing.T) {
	root := t.TempDir()
	db, err := Open(root, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot(buildTestSnapshot(t, 7, "gen-7")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(root, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	loaded, err := db.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.Generation != 7 {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestScanHistory(t *testing.T) {
	db, _ := openTestDB(t)
	for i := 1; i <= 3; i++ {
		err := db.RecordScan(ScanRecord{
			ScanType:     "full",
			Generation:   uint64(i),
			FilesScanned: 10 * i,
			Nodes:        20 * i,
			Edges:        5 * i,
			DurationMs:   int64(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := db.ScanHistory(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("history length = %d, want 2", len(recs))
	}
	if recs[0].Generation != 3 || recs[1].Generation != 2 {
		t.Errorf("history order = %d, %d; want newest first", recs[0].Generation, recs[1].Generation)
	}
	if recs[0].CreatedAt.IsZero() {
		t.Errorf("createdAt not recorded")
	}
}

func TestScanHistoryTrimmed(t *testing.T) {
	db, _ := openTestDB(t)
	for i := 0; i < historyKeep+10; i++ {
		err := db.RecordScan(ScanRecord{ScanType: "incremental", Generation: uint64(i)})
		if err != nil {
			t.Fatal(err)
		}
	}

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM scan_history").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != historyKeep {
		t.Errorf("history rows = %d, want %d", count, historyKeep)
	}
}
