package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"devchat/internal/graph"
	"devchat/internal/index"
	"devchat/internal/query"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *query.Result:
		return formatResultHuman(v)
	case *graph.ImpactResult:
		return formatImpactHuman(v), nil
	case index.Stats:
		return formatStatsHuman(v), nil
	case *index.ScanReport:
		return formatScanReportHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatResultHuman renders a routed query result by intent.
func formatResultHuman(r *query.Result) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Intent: %s\n", r.Intent))
	if r.Target != "" {
		b.WriteString(fmt.Sprintf("Target: %s\n", r.Target))
	}
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if r.NotFound {
		b.WriteString(fmt.Sprintf("No results: %s\n", r.Message))
		return b.String(), nil
	}

	switch r.Intent {
	case query.IntentImpactAnalysis:
		b.WriteString(formatImpactHuman(r.Impact))

	case query.IntentFindCallers:
		b.WriteString(fmt.Sprintf("Callers: %d\n\n", len(r.Callers)))
		for i, c := range r.Callers {
			b.WriteString(fmt.Sprintf("  %d. %s -> %s\n", i+1, c.NodeID, c.Via))
		}

	case query.IntentFindDefinition:
		b.WriteString(fmt.Sprintf("Definitions: %d\n\n", len(r.Definitions)))
		for i, d := range r.Definitions {
			b.WriteString(fmt.Sprintf("  %d. %s (%s) %s:%d-%d\n",
				i+1, d.Name, d.Kind, d.Path, d.LineStart, d.LineEnd))
		}

	case query.IntentStoreInteractions:
		b.WriteString(formatStoresHuman(r.Stores))

	case query.IntentSemanticSearch:
		b.WriteString(fmt.Sprintf("Matches: %d\n\n", len(r.Matches)))
		for i, m := range r.Matches {
			b.WriteString(fmt.Sprintf("  %d. %s (%s) score=%.6f\n", i+1, m.NodeID, m.Kind, m.Score))
			summary := strings.ReplaceAll(m.Summary, "\n", " ")
			if len(summary) > 100 {
				summary = summary[:100] + "..."
			}
			b.WriteString(fmt.Sprintf("     %s\n", summary))
		}
	}

	return b.String(), nil
}

func formatImpactHuman(impact *graph.ImpactResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Impact of changing %s\n\n", impact.Start))
	b.WriteString(fmt.Sprintf("Direct: %d, Transitive: %d, Total: %d\n",
		len(impact.Direct), len(impact.Transitive), impact.TotalCount))
	if impact.Truncated {
		b.WriteString("(truncated: traversal hit the visit cap)\n")
	}
	b.WriteString("\n")

	if len(impact.Direct) > 0 {
		b.WriteString("Directly affected:\n")
		for _, e := range impact.Direct {
			b.WriteString(fmt.Sprintf("  - %s (%s)\n", e.NodeID, e.Relation))
		}
		b.WriteString("\n")
	}

	if len(impact.Transitive) > 0 {
		b.WriteString("Transitively affected:\n")
		shown := impact.Transitive
		if len(shown) > 20 {
			shown = shown[:20]
		}
		for _, e := range shown {
			b.WriteString(fmt.Sprintf("  - %s (distance %d, via %s)\n", e.NodeID, e.Distance, e.Via))
		}
		if rest := len(impact.Transitive) - len(shown); rest > 0 {
			b.WriteString(fmt.Sprintf("  ... and %d more\n", rest))
		}
	}

	return b.String()
}

func formatStoresHuman(stores *query.StoreInteractions) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Readers: %d, Writers: %d\n\n", len(stores.Reads), len(stores.Writes)))
	if len(stores.Reads) > 0 {
		b.WriteString("Reads from store:\n")
		for _, s := range stores.Reads {
			b.WriteString(fmt.Sprintf("  - %s (%s) in %s\n", s.Name, s.Kind, s.Path))
		}
		b.WriteString("\n")
	}
	if len(stores.Writes) > 0 {
		b.WriteString("Writes to store:\n")
		for _, s := range stores.Writes {
			b.WriteString(fmt.Sprintf("  - %s (%s) in %s\n", s.Name, s.Kind, s.Path))
		}
	}

	return b.String()
}

func formatStatsHuman(stats index.Stats) string {
	var b strings.Builder

	b.WriteString("Index Statistics\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("State: %s\n", stats.State))
	b.WriteString(fmt.Sprintf("Generation: %d (%s)\n", stats.Generation, stats.GenerationID))
	b.WriteString(fmt.Sprintf("Files: %d\n", stats.Files))
	b.WriteString(fmt.Sprintf("Nodes: %d\n", stats.Nodes))
	b.WriteString(fmt.Sprintf("Edges: %d\n", stats.Edges))
	b.WriteString(fmt.Sprintf("Vector items: %d\n", stats.VectorItems))
	b.WriteString(fmt.Sprintf("Unresolved imports: %d\n", stats.UnresolvedImports))
	if stats.Embedder != "" {
		b.WriteString(fmt.Sprintf("Embedder: %s\n", stats.Embedder))
	}
	if !stats.LastScan.IsZero() {
		b.WriteString(fmt.Sprintf("Last scan: %s\n", stats.LastScan.Format("2006-01-02 15:04:05")))
	}

	return b.String()
}

func formatScanReportHuman(report *index.ScanReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Scan complete (%s)\n", report.Type))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Generation: %d\n", report.Generation))
	b.WriteString(fmt.Sprintf("Files scanned: %d\n", report.FilesScanned))
	b.WriteString(fmt.Sprintf("Nodes: %d, Edges: %d\n", report.Nodes, report.Edges))
	b.WriteString(fmt.Sprintf("Vector items: %d\n", report.VectorItems))
	b.WriteString(fmt.Sprintf("Unresolved imports: %d\n", report.UnresolvedImports))
	b.WriteString(fmt.Sprintf("Duration: %dms\n", report.DurationMs))

	if len(report.Errors) > 0 {
		b.WriteString(fmt.Sprintf("\nErrors: %d\n", len(report.Errors)))
		for _, e := range report.Errors {
			b.WriteString(fmt.Sprintf("  - %s: %s\n", e.Path, e.Message))
		}
	}
	if report.Degraded {
		b.WriteString("\nWARNING: index is degraded, too many files failed to parse\n")
	}

	return b.String()
}
