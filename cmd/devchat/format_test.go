package main

import (
	"strings"
	"testing"
	"time"

	"devchat/internal/graph"
	"devchat/internal/index"
	"devchat/internal/query"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	resp := map[string]string{"key": "value"}

	_, err := FormatResponse(resp, "xml")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatImpactHuman(t *testing.T) {
	impact := &graph.ImpactResult{
		Start: "models.py",
		Direct: []graph.ImpactEntry{
			{NodeID: "views.py", Relation: "imported_by", Distance: 1},
			{NodeID: "api.py", Relation: "imported_by", Distance: 1},
		},
		Transitive: []graph.ImpactEntry{
			{NodeID: "routes.py", Relation: "transitive", Via: "views.py", Distance: 2},
		},
		TotalCount: 3,
	}

	result := formatImpactHuman(impact)

	if !strings.Contains(result, "Impact of changing models.py") {
		t.Error("missing header")
	}
	if !strings.Contains(result, "Direct: 2, Transitive: 1, Total: 3") {
		t.Error("missing counts")
	}
	if !strings.Contains(result, "views.py (imported_by)") {
		t.Error("missing direct entry")
	}
	if !strings.Contains(result, "routes.py (distance 2, via views.py)") {
		t.Error("missing transitive entry with attribution")
	}
	if strings.Contains(result, "truncated") {
		t.Error("should not mention truncation when the walk completed")
	}
}

func TestFormatImpactHuman_Truncated(t *testing.T) {
	impact := &graph.ImpactResult{
		Start:     "core.py",
		Truncated: true,
	}

	result := formatImpactHuman(impact)
	if !strings.Contains(result, "truncated") {
		t.Error("missing truncation warning")
	}
}

func TestFormatResultHuman_NotFound(t *testing.T) {
	r := &query.Result{
		Intent:   query.IntentFindCallers,
		Target:   "ghost",
		NotFound: true,
		Message:  "no function or method named ghost",
	}

	result, err := formatResultHuman(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Intent: find_callers") {
		t.Error("missing intent")
	}
	if !strings.Contains(result, "No results: no function or method named ghost") {
		t.Error("missing not-found message")
	}
}

func TestFormatResultHuman_Definitions(t *testing.T) {
	r := &query.Result{
		Intent: query.IntentFindDefinition,
		Target: "save_user",
		Definitions: []*graph.Node{
			{ID: "models.py:function:save_user", Name: "save_user", Kind: graph.KindFunction,
				Path: "models.py", LineStart: 10, LineEnd: 14},
		},
	}

	result, err := formatResultHuman(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Definitions: 1") {
		t.Error("missing definition count")
	}
	if !strings.Contains(result, "save_user (function) models.py:10-14") {
		t.Error("missing definition line")
	}
}

func TestFormatResultHuman_Stores(t *testing.T) {
	r := &query.Result{
		Intent: query.IntentStoreInteractions,
		Stores: &query.StoreInteractions{
			Reads: []query.StoreInteraction{
				{NodeID: "repo.py:method:Repo.load", Name: "load", Kind: graph.KindMethod, Path: "repo.py"},
			},
			Writes: []query.StoreInteraction{
				{NodeID: "repo.py:function:save", Name: "save", Kind: graph.KindFunction, Path: "repo.py"},
			},
		},
	}

	result, err := formatResultHuman(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "Readers: 1, Writers: 1") {
		t.Error("missing counts")
	}
	if !strings.Contains(result, "load (method) in repo.py") {
		t.Error("missing reader")
	}
	if !strings.Contains(result, "save (function) in repo.py") {
		t.Error("missing writer")
	}
}

func TestFormatStatsHuman(t *testing.T) {
	stats := index.Stats{
		Files:             12,
		Nodes:             80,
		Edges:             150,
		VectorItems:       80,
		UnresolvedImports: 3,
		Generation:        4,
		GenerationID:      "gen-abc",
		State:             index.StateIdle,
		LastScan:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Embedder:          "hashing-tf",
	}

	result := formatStatsHuman(stats)

	if !strings.Contains(result, "State: idle") {
		t.Error("missing state")
	}
	if !strings.Contains(result, "Generation: 4 (gen-abc)") {
		t.Error("missing generation")
	}
	if !strings.Contains(result, "Files: 12") {
		t.Error("missing file count")
	}
	if !strings.Contains(result, "Unresolved imports: 3") {
		t.Error("missing unresolved imports")
	}
	if !strings.Contains(result, "Embedder: hashing-tf") {
		t.Error("missing embedder")
	}
}

func TestFormatScanReportHuman_Degraded(t *testing.T) {
	report := &index.ScanReport{
		Type:         "full",
		Generation:   1,
		FilesScanned: 5,
		Nodes:        3,
		Edges:        1,
		Errors: []index.ErrorRecord{
			{Path: "bad.py", Message: "syntax error near line 3"},
		},
		Degraded:   true,
		DurationMs: 42,
	}

	result := formatScanReportHuman(report)

	if !strings.Contains(result, "Scan complete (full)") {
		t.Error("missing header")
	}
	if !strings.Contains(result, "bad.py: syntax error near line 3") {
		t.Error("missing error record")
	}
	if !strings.Contains(result, "degraded") {
		t.Error("missing degraded warning")
	}
}
