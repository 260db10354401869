package index

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"devchat/internal/config"
	"devchat/internal/errors"
	"devchat/internal/extract"
	"devchat/internal/graph"
	"devchat/internal/logging"
	"devchat/internal/paths"
	"devchat/internal/vector"
)

// State is the externally visible mode of the indexer.
type State string

const (
	// StateIdle means the last pass completed normally
	StateIdle State = "idle"
	// StateScanning means a pass is in progress
	StateScanning State = "scanning"
	// StateDegraded means too many files failed to parse in the last pass
	StateDegraded State = "degraded"
)

// ChangeOp says what happened to a path.
type ChangeOp string

const (
	// OpModify covers creates and writes
	OpModify ChangeOp = "modify"
	// OpDelete covers removes and renames away
	OpDelete ChangeOp = "delete"
)

// Change is one debounced filesystem event in canonical path form.
type Change struct {
	Path string
	Op   ChangeOp
}

// ErrorRecord surfaces one per-file failure in a scan report.
type ErrorRecord struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ScanReport summarizes one indexing pass.
type ScanReport struct {
	Type              string        `json:"type"`
	Generation        uint64        `json:"generation"`
	GenerationID      string        `json:"generationId"`
	FilesScanned      int           `json:"filesScanned"`
	Nodes             int           `json:"nodes"`
	Edges             int           `json:"edges"`
	VectorItems       int           `json:"vectorItems"`
	SkippedEmbeddings int           `json:"skippedEmbeddings,omitempty"`
	UnresolvedImports int           `json:"unresolvedImports"`
	PrunedEdges       int           `json:"prunedEdges,omitempty"`
	Errors            []ErrorRecord `json:"errors,omitempty"`
	Degraded          bool          `json:"degraded,omitempty"`
	DurationMs        int64         `json:"durationMs"`
}

// Stats is the read-side view of engine state. Everything except State and
// LastScan comes straight off the current snapshot.
type Stats struct {
	Files             int       `json:"files"`
	Nodes             int       `json:"nodes"`
	Edges             int       `json:"edges"`
	VectorItems       int       `json:"vectorItems"`
	UnresolvedImports int       `json:"unresolvedImports"`
	Generation        uint64    `json:"generation"`
	GenerationID      string    `json:"generationId"`
	State             State     `json:"state"`
	LastScan          time.Time `json:"lastScan"`
	Embedder          string    `json:"embedder,omitempty"`
}

// Archiver persists published snapshots for warm starts. Persistence is
// best-effort; failures are logged and never fail a scan.
type Archiver interface {
	SaveSnapshot(s *graph.Snapshot) error
}

// Indexer is the single writer of the code graph. All mutation funnels
// through FullScan and ApplyChanges, which serialize on an internal lock,
// rebuild a complete snapshot and publish it atomically. Readers never
// block on either.
type Indexer struct {
	root      string
	cfg       *config.Config
	logger    *logging.Logger
	store     *graph.Store
	extractor *extract.Extractor
	walker    *Walker
	embedder  vector.Embedder
	archiver  Archiver

	mu          sync.Mutex
	extractions map[string]*extract.FileExtraction

	stateMu  sync.RWMutex
	state    State
	lastScan time.Time
}

// New creates an indexer. embedder may be nil to disable the vector index.
func New(root string, cfg *config.Config, logger *logging.Logger, store *graph.Store, extractor *extract.Extractor, walker *Walker, embedder vector.Embedder) *Indexer {
	return &Indexer{
		root:        root,
		cfg:         cfg,
		logger:      logger.With(map[string]interface{}{"component": "indexer"}),
		store:       store,
		extractor:   extractor,
		walker:      walker,
		embedder:    embedder,
		extractions: map[string]*extract.FileExtraction{},
		state:       StateIdle,
	}
}

// SetArchiver wires snapshot persistence. Call before the first scan.
func (ix *Indexer) SetArchiver(a Archiver) {
	ix.archiver = a
}

// FullScan walks the whole root, re-extracts every file and publishes a
// fresh snapshot. The returned error is reserved for walk failures and
// context cancellation; per-file problems land in the report.
func (ix *Indexer) FullScan(ctx context.Context) (*ScanReport, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.setState(StateScanning)
	start := time.Now()

	files, err := ix.walker.Walk()
	if err != nil {
		ix.setState(StateIdle)
		return nil, errors.Wrap(errors.InternalError, "scan walk failed", err)
	}

	fresh := make(map[string]*extract.FileExtraction, len(files))
	scanned := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			ix.setState(StateIdle)
			return nil, err
		}
		content, err := os.ReadFile(f.Abs)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			fresh[f.Path] = &extract.FileExtraction{
				Path: f.Path,
				Err:  errors.Wrap(errors.ParseError, "read failed: "+f.Path, err),
			}
			scanned = append(scanned, f.Path)
			continue
		}
		fx, err := ix.extractor.Extract(ctx, f.Path, content)
		if err != nil {
			ix.setState(StateIdle)
			return nil, err
		}
		fresh[f.Path] = fx
		scanned = append(scanned, f.Path)
	}
	ix.extractions = fresh

	return ix.rebuild(ctx, "full", scanned, start)
}

// ApplyChanges folds a debounced change batch into the extraction map and
// publishes the next snapshot. Deleting a directory path removes
// everything beneath it; a modify whose file vanished before the read is
// treated as a delete.
func (ix *Indexer) ApplyChanges(ctx context.Context, changes []Change) (*ScanReport, error) {
	batch := collapseChanges(changes)
	if len(batch) == 0 {
		return nil, nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.setState(StateScanning)
	start := time.Now()

	scanned := make([]string, 0, len(batch))
	for _, c := range batch {
		if err := ctx.Err(); err != nil {
			ix.setState(StateIdle)
			return nil, err
		}
		switch c.Op {
		case OpDelete:
			ix.removePrefix(c.Path)
		case OpModify:
			content, err := os.ReadFile(paths.Join(ix.root, c.Path))
			if err != nil {
				ix.removePrefix(c.Path)
				continue
			}
			fx, err := ix.extractor.Extract(ctx, c.Path, content)
			if err != nil {
				ix.setState(StateIdle)
				return nil, err
			}
			ix.extractions[c.Path] = fx
			scanned = append(scanned, c.Path)
		}
	}

	return ix.rebuild(ctx, "incremental", scanned, start)
}

// rebuild assembles and publishes the next generation from the current
// extraction map: all nodes, a full edge re-resolution, and a vector set
// diffed against the previous snapshot. scanned lists the paths
// (re-)extracted this pass, ascending.
func (ix *Indexer) rebuild(ctx context.Context, scanType string, scanned []string, start time.Time) (*ScanReport, error) {
	b := graph.NewBuilder()
	nodeIDs := make(map[string]struct{})
	for _, p := range sortedPaths(ix.extractions) {
		for _, n := range ix.extractions[p].Nodes() {
			b.AddNode(n)
			nodeIDs[n.ID] = struct{}{}
		}
	}
	resolveEdges(b, ix.extractions)

	vectors, skipped := ix.rebuildVectors(ctx, scanType, nodeIDs, scanned)

	generation := ix.store.Current().Generation + 1
	snap, pruned := b.Build(generation, uuid.New().String(), time.Now(), vectors)
	for _, e := range pruned {
		ix.logger.Warn("pruned dangling edge", map[string]interface{}{
			"code": string(errors.DanglingReference),
			"from": e.From,
			"to":   e.To,
			"kind": string(e.Kind),
		})
	}
	ix.store.Publish(snap)

	var errRecords []ErrorRecord
	parseFailures := 0
	for _, p := range scanned {
		if fx, ok := ix.extractions[p]; ok && fx.Err != nil {
			errRecords = append(errRecords, ErrorRecord{Path: p, Message: fx.Err.Message})
			parseFailures++
		}
	}

	degraded := false
	if n := len(scanned); n > 0 && ix.cfg.Index.DegradedThreshold > 0 {
		degraded = float64(parseFailures)/float64(n) > ix.cfg.Index.DegradedThreshold
	}
	if degraded {
		ix.setState(StateDegraded)
	} else {
		ix.setState(StateIdle)
	}
	ix.setLastScan(time.Now())

	if ix.archiver != nil {
		if err := ix.archiver.SaveSnapshot(snap); err != nil {
			ix.logger.Warn("snapshot persist failed", map[string]interface{}{
				"code":  string(errors.StorageError),
				"error": err.Error(),
			})
		}
	}

	report := &ScanReport{
		Type:              scanType,
		Generation:        snap.Generation,
		GenerationID:      snap.GenerationID,
		FilesScanned:      len(scanned),
		Nodes:             snap.NodeCount(),
		Edges:             snap.EdgeCount(),
		VectorItems:       vectors.Len(),
		SkippedEmbeddings: skipped,
		UnresolvedImports: len(snap.UnresolvedImports()),
		PrunedEdges:       len(pruned),
		Errors:            errRecords,
		Degraded:          degraded,
		DurationMs:        time.Since(start).Milliseconds(),
	}
	ix.logger.Info("scan complete", map[string]interface{}{
		"type":       report.Type,
		"generation": report.Generation,
		"files":      report.FilesScanned,
		"nodes":      report.Nodes,
		"edges":      report.Edges,
		"vectors":    report.VectorItems,
		"errors":     len(report.Errors),
		"durationMs": report.DurationMs,
	})
	return report, nil
}

// rebuildVectors carries the previous vector set forward, drops records
// for nodes that no longer exist and re-embeds only documents whose text
// changed. An embedding failure skips the affected documents and leaves
// the rest of the index intact.
func (ix *Indexer) rebuildVectors(ctx context.Context, scanType string, nodeIDs map[string]struct{}, scanned []string) (*vector.Set, int) {
	prev := ix.store.Current().Vectors()
	vb := vector.FromSet(prev)
	if ix.embedder != nil && scanType == "full" && prev.Len() > 0 &&
		prev.Dimensions() != ix.embedder.Dimensions() {
		// embedder changed width; every document re-embeds on a full pass
		vb = vector.NewBuilder()
	}
	for _, rec := range prev.Records() {
		if _, ok := nodeIDs[rec.NodeID]; !ok {
			vb.Remove(rec.NodeID)
		}
	}
	if ix.embedder == nil {
		return vb.Build(), 0
	}

	var ids []string
	var texts []string
	for _, p := range scanned {
		fx := ix.extractions[p]
		if fx == nil {
			continue
		}
		for _, doc := range summariesFor(fx) {
			if existing, ok := vb.Summary(doc.NodeID); ok && existing == doc.Text {
				continue
			}
			ids = append(ids, doc.NodeID)
			texts = append(texts, doc.Text)
		}
	}
	if len(texts) == 0 {
		return vb.Build(), 0
	}

	skipped := 0
	const batchSize = 64
	for i := 0; i < len(texts); i += batchSize {
		j := min(i+batchSize, len(texts))
		embs, err := ix.embedder.Embed(ctx, texts[i:j])
		if err != nil || len(embs) != j-i {
			msg := "short embedding batch"
			if err != nil {
				msg = err.Error()
			}
			ix.logger.Warn("embedding batch failed", map[string]interface{}{
				"code":     string(errors.EmbeddingUnavailable),
				"embedder": ix.embedder.Name(),
				"count":    j - i,
				"error":    msg,
			})
			skipped += j - i
			continue
		}
		for k, emb := range embs {
			if err := vb.Upsert(ids[i+k], emb, texts[i+k]); err != nil {
				skipped++
			}
		}
	}
	return vb.Build(), skipped
}

// Stats reads the current snapshot and indexer mode without touching the
// writer lock.
func (ix *Indexer) Stats() Stats {
	snap := ix.store.Current()
	ix.stateMu.RLock()
	st := ix.state
	last := ix.lastScan
	ix.stateMu.RUnlock()

	s := Stats{
		Files:             snap.FileCount(),
		Nodes:             snap.NodeCount(),
		Edges:             snap.EdgeCount(),
		VectorItems:       snap.Vectors().Len(),
		UnresolvedImports: len(snap.UnresolvedImports()),
		Generation:        snap.Generation,
		GenerationID:      snap.GenerationID,
		State:             st,
		LastScan:          last,
	}
	if ix.embedder != nil {
		s.Embedder = ix.embedder.Name()
	}
	return s
}

// State returns the indexer's current mode.
func (ix *Indexer) State() State {
	ix.stateMu.RLock()
	defer ix.stateMu.RUnlock()
	return ix.state
}

func (ix *Indexer) setState(s State) {
	ix.stateMu.Lock()
	ix.state = s
	ix.stateMu.Unlock()
}

func (ix *Indexer) setLastScan(t time.Time) {
	ix.stateMu.Lock()
	ix.lastScan = t
	ix.stateMu.Unlock()
}

// removePrefix drops the extraction for p and, when p was a directory,
// everything beneath it.
func (ix *Indexer) removePrefix(p string) {
	delete(ix.extractions, p)
	prefix := p + "/"
	for key := range ix.extractions {
		if strings.HasPrefix(key, prefix) {
			delete(ix.extractions, key)
		}
	}
}

// collapseChanges dedupes a batch by path, last op winning, and orders it
// by path so passes are deterministic.
func collapseChanges(changes []Change) []Change {
	last := make(map[string]ChangeOp, len(changes))
	for _, c := range changes {
		if c.Path == "" {
			continue
		}
		last[c.Path] = c.Op
	}
	out := make([]Change, 0, len(last))
	for p, op := range last {
		out = append(out, Change{Path: p, Op: op})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func sortedPaths(m map[string]*extract.FileExtraction) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
