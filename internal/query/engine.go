package query

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"devchat/internal/config"
	"devchat/internal/errors"
	"devchat/internal/extract"
	"devchat/internal/graph"
	"devchat/internal/index"
	"devchat/internal/logging"
	"devchat/internal/patterns"
	"devchat/internal/storage"
	"devchat/internal/vector"
)

// Engine wires the extractor, indexer, graph store and vector index behind
// the operations the CLI and HTTP server expose. One Engine owns one
// indexed root.
type Engine struct {
	root     string
	cfg      *config.Config
	logger   *logging.Logger
	store    *graph.Store
	indexer  *index.Indexer
	walker   *index.Walker
	embedder vector.Embedder
	db       *storage.DB
	lock     *index.Lock

	watchMu sync.Mutex
	watcher *index.Watcher
}

// NewEngine builds an engine for root. A nonexistent root is the one fatal
// condition; everything else (missing pattern file, broken archive,
// unreachable embedding backend) degrades with a warning.
func NewEngine(root string, cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.RootNotFound, "resolve root path", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, errors.New(errors.RootNotFound, "root is not a directory: "+abs)
	}

	table, err := patterns.LoadTable(abs, config.StateDirName)
	if err != nil {
		logger.Warn("pattern table invalid, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		table = patterns.DefaultTable()
	}

	registry := extract.NewRegistry(cfg.Languages.Enabled)
	overridesPath := filepath.Join(abs, config.StateDirName, "languages.yaml")
	if err := registry.LoadOverrides(overridesPath); err != nil {
		logger.Warn("language overrides invalid, ignoring", map[string]interface{}{
			"path":  overridesPath,
			"error": err.Error(),
		})
	}

	extractor := extract.NewExtractor(registry, table)
	walker := index.NewWalker(abs, registry, cfg.Scan, cfg.Languages.MaxFileSizeBytes)
	store := graph.NewStore()
	embedder := buildEmbedder(cfg.Vector)

	e := &Engine{
		root:     abs,
		cfg:      cfg,
		logger:   logger,
		store:    store,
		walker:   walker,
		embedder: embedder,
		indexer:  index.New(abs, cfg, logger, store, extractor, walker, embedder),
	}

	if cfg.Index.Persist {
		e.openStorage()
	}
	return e, nil
}

// openStorage wires the snapshot archive. The state directory is locked
// first so two processes never write it concurrently; any failure leaves
// the engine memory-only.
func (e *Engine) openStorage() {
	lock, err := index.AcquireLock(filepath.Join(e.root, config.StateDirName))
	if err != nil {
		e.logger.Warn("state directory busy, running in memory", map[string]interface{}{
			"code":  string(errors.StorageError),
			"error": err.Error(),
		})
		return
	}
	e.lock = lock

	db, err := storage.Open(e.root, e.logger)
	if err != nil {
		e.logger.Warn("persistence unavailable, running in memory", map[string]interface{}{
			"code":  string(errors.StorageError),
			"error": err.Error(),
		})
		e.lock.Release()
		e.lock = nil
		return
	}
	e.db = db
	e.indexer.SetArchiver(db)

	snap, err := db.LoadSnapshot()
	if err != nil {
		e.logger.Warn("snapshot archive unreadable, cold start", map[string]interface{}{
			"code":  string(errors.StorageError),
			"error": err.Error(),
		})
		return
	}
	if snap != nil {
		e.store.Publish(snap)
		e.logger.Info("warm start from archived snapshot", map[string]interface{}{
			"generation": snap.Generation,
			"nodes":      snap.NodeCount(),
			"builtAt":    snap.BuiltAt,
		})
	}
}

// buildEmbedder picks the embedding backend: remote when an endpoint is
// configured, the local hashing embedder otherwise, nil when disabled.
func buildEmbedder(cfg config.VectorConfig) vector.Embedder {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint != "" {
		return vector.NewOpenAIEmbedder(cfg.Endpoint, cfg.Model, os.Getenv(cfg.APIKeyEnv), cfg.Dimensions)
	}
	return vector.NewHashingEmbedder(cfg.Dimensions)
}

// Root returns the absolute indexed root.
func (e *Engine) Root() string {
	return e.root
}

// Rescan runs a full scan and records it in the history.
func (e *Engine) Rescan(ctx context.Context) (*index.ScanReport, error) {
	report, err := e.indexer.FullScan(ctx)
	if err != nil {
		return nil, err
	}
	e.recordScan(report)
	return report, nil
}

// EnsureIndexed runs a full scan when no generation has been published
// yet, so one-shot commands work without an explicit scan step.
func (e *Engine) EnsureIndexed(ctx context.Context) error {
	if e.store.Current().Generation > 0 {
		return nil
	}
	_, err := e.Rescan(ctx)
	return err
}

// Stats returns the read-side view of the engine.
func (e *Engine) Stats() index.Stats {
	return e.indexer.Stats()
}

// Query answers a free-text question with a typed result. Unknown targets
// and degraded backends produce typed not-found results, never errors.
func (e *Engine) Query(ctx context.Context, question string) *Result {
	r := classify(question)
	snap := e.store.Current()

	switch r.intent {
	case IntentImpactAnalysis:
		node, err := findNode(snap, r.target)
		if err != nil {
			return notFound(r.intent, r.target, "file not found: "+r.target)
		}
		impact, err := snap.ImpactAnalysis(node.ID, e.cfg.Impact.MaxVisited)
		if err != nil {
			return notFound(r.intent, r.target, "file not found: "+r.target)
		}
		return &Result{Intent: r.intent, Target: node.ID, Impact: impact}

	case IntentStoreInteractions:
		stores := collectStores(snap, r.access)
		res := &Result{Intent: r.intent, Target: r.access, Stores: stores}
		if len(stores.Reads) == 0 && len(stores.Writes) == 0 {
			res.NotFound = true
			res.Message = "no store interactions in the index"
		}
		return res

	case IntentFindCallers:
		if !hasCallable(snap, r.target) {
			return notFound(r.intent, r.target, "no function or method named "+r.target)
		}
		return &Result{Intent: r.intent, Target: r.target, Callers: snap.Callers(r.target)}

	case IntentFindDefinition:
		defs := snap.NodesByName(r.target)
		if len(defs) == 0 {
			return notFound(r.intent, r.target, "no definition found for "+r.target)
		}
		return &Result{Intent: r.intent, Target: r.target, Definitions: defs}

	default:
		matches, err := e.Search(ctx, r.target, e.cfg.Vector.TopK)
		if err != nil {
			return notFound(IntentSemanticSearch, r.target, err.Error())
		}
		return &Result{Intent: IntentSemanticSearch, Target: r.target, Matches: matches}
	}
}

// Search embeds the text and ranks the vector index against it.
func (e *Engine) Search(ctx context.Context, text string, n int) ([]SearchMatch, error) {
	if e.embedder == nil {
		return nil, errors.New(errors.EmbeddingUnavailable, "semantic search is disabled: no embedder configured")
	}
	if n <= 0 {
		n = e.cfg.Vector.TopK
	}
	if n <= 0 {
		n = 5
	}
	embs, err := e.embedder.Embed(ctx, []string{text})
	if err != nil || len(embs) != 1 {
		return nil, errors.Wrap(errors.EmbeddingUnavailable, "embed query text", err)
	}

	snap := e.store.Current()
	matches := snap.Vectors().Query(embs[0], n)
	out := make([]SearchMatch, 0, len(matches))
	for _, m := range matches {
		sm := SearchMatch{NodeID: m.NodeID, Score: m.Score, Summary: m.Summary}
		if node := snap.GetNode(m.NodeID); node != nil {
			sm.Name = node.Name
			sm.Kind = node.Kind
			sm.Path = node.Path
		}
		out = append(out, sm)
	}
	return out, nil
}

// GetNode resolves a node reference: exact id, "path::name", a file path
// suffix, or a bare symbol name (first by sorted node id).
func (e *Engine) GetNode(ref string) (*graph.Node, error) {
	return findNode(e.store.Current(), ref)
}

// Impact runs impact analysis from any resolvable node reference.
func (e *Engine) Impact(ref string) (*graph.ImpactResult, error) {
	snap := e.store.Current()
	node, err := findNode(snap, ref)
	if err != nil {
		return nil, err
	}
	return snap.ImpactAnalysis(node.ID, e.cfg.Impact.MaxVisited)
}

// Files lists every indexed file path.
func (e *Engine) Files() []string {
	return e.store.Current().Files()
}

// FileInfo describes one file: its node, symbols and import neighborhood.
func (e *Engine) FileInfo(path string) (*FileInfo, error) {
	snap := e.store.Current()
	file := snap.FindFileBySuffix(path)
	if file == nil {
		return nil, errors.New(errors.QueryNotFound, "file not found: "+path)
	}
	info := &FileInfo{
		File:         file,
		Symbols:      []*graph.Node{},
		Dependencies: snap.Dependencies(file.ID),
		Dependents:   snap.Dependents(file.ID),
	}
	for _, n := range snap.NodesByPath(file.Path) {
		if n.Kind != graph.KindFile {
			info.Symbols = append(info.Symbols, n)
		}
	}
	return info, nil
}

// StoreInteractions lists symbols touching a data store. kind narrows to
// "read" or "write"; anything else means both.
func (e *Engine) StoreInteractions(kind string) *StoreInteractions {
	return collectStores(e.store.Current(), normalizeAccess(kind))
}

// CodeMap returns the visualization projection of the current snapshot.
func (e *Engine) CodeMap() *graph.CodeMap {
	return e.store.Current().CodeMap()
}

// ScanHistory returns recent scans, newest first. Empty without
// persistence.
func (e *Engine) ScanHistory(limit int) ([]storage.ScanRecord, error) {
	if e.db == nil {
		return nil, nil
	}
	return e.db.ScanHistory(limit)
}

// StartWatching launches the filesystem watcher and, when configured, the
// periodic refresh loop. Idempotent.
func (e *Engine) StartWatching(ctx context.Context) error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil {
		return nil
	}

	opts := index.WatchOptions{
		Debounce:  time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond,
		QueueSize: e.cfg.Watch.QueueSize,
	}
	w, err := index.NewWatcher(e.root, e.walker, e.logger, opts, e.applyChanges, e.forceRescan)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	e.watcher = w

	if expr := e.cfg.Watch.RefreshInterval; expr != "" {
		every, err := index.ParseRefreshInterval(expr)
		if err != nil {
			e.logger.Warn("refresh interval invalid, periodic rescan disabled", map[string]interface{}{
				"interval": expr,
				"error":    err.Error(),
			})
		} else {
			go e.indexer.RunPeriodic(ctx, every)
		}
	}
	return nil
}

// StopWatching stops the watcher if it is running.
func (e *Engine) StopWatching() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil {
		e.watcher.Stop()
		e.watcher = nil
	}
}

// Close stops the watcher and releases storage and the state lock.
func (e *Engine) Close() error {
	e.StopWatching()
	var err error
	if e.db != nil {
		err = e.db.Close()
	}
	if e.lock != nil {
		e.lock.Release()
		e.lock = nil
	}
	return err
}

func (e *Engine) applyChanges(ctx context.Context, changes []index.Change) {
	report, err := e.indexer.ApplyChanges(ctx, changes)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("incremental scan failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}
	e.recordScan(report)
}

func (e *Engine) forceRescan(ctx context.Context) {
	report, err := e.indexer.FullScan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("forced rescan failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}
	e.recordScan(report)
}

func (e *Engine) recordScan(report *index.ScanReport) {
	if e.db == nil || report == nil {
		return
	}
	err := e.db.RecordScan(storage.ScanRecord{
		ScanType:     report.Type,
		Generation:   report.Generation,
		FilesScanned: report.FilesScanned,
		Nodes:        report.Nodes,
		Edges:        report.Edges,
		ErrorCount:   len(report.Errors),
		Degraded:     report.Degraded,
		DurationMs:   report.DurationMs,
	})
	if err != nil {
		e.logger.Warn("scan history write failed", map[string]interface{}{
			"code":  string(errors.StorageError),
			"error": err.Error(),
		})
	}
}

// findNode resolves a reference against one snapshot so lookups and the
// traversals that follow them see the same generation.
func findNode(snap *graph.Snapshot, ref string) (*graph.Node, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New(errors.QueryNotFound, "empty node reference")
	}
	if n := snap.GetNode(ref); n != nil {
		return n, nil
	}
	if path, name, ok := strings.Cut(ref, "::"); ok {
		if file := snap.FindFileBySuffix(path); file != nil {
			for _, n := range snap.NodesByPath(file.Path) {
				if n.Kind != graph.KindFile && n.Name == name {
					return n, nil
				}
			}
		}
		return nil, errors.New(errors.QueryNotFound, "node not found: "+ref)
	}
	if file := snap.FindFileBySuffix(ref); file != nil {
		return file, nil
	}
	if nodes := snap.NodesByName(ref); len(nodes) > 0 {
		return nodes[0], nil
	}
	return nil, errors.New(errors.QueryNotFound, "node not found: "+ref)
}

// hasCallable reports whether any function or method carries the name.
func hasCallable(snap *graph.Snapshot, name string) bool {
	for _, n := range snap.NodesByName(name) {
		if n.Kind == graph.KindFunction || n.Kind == graph.KindMethod {
			return true
		}
	}
	return false
}

// collectStores gathers store-access edges from one snapshot. access
// "read" or "write" narrows the result to one side.
func collectStores(snap *graph.Snapshot, access string) *StoreInteractions {
	out := &StoreInteractions{
		Reads:  []StoreInteraction{},
		Writes: []StoreInteraction{},
	}
	for _, e := range snap.Edges() {
		var bucket *[]StoreInteraction
		switch e.Kind {
		case graph.EdgeReadsStore:
			if access == "write" {
				continue
			}
			bucket = &out.Reads
		case graph.EdgeWritesStore:
			if access == "read" {
				continue
			}
			bucket = &out.Writes
		default:
			continue
		}
		node := snap.GetNode(e.From)
		*bucket = append(*bucket, StoreInteraction{
			NodeID: e.From,
			Name:   node.Name,
			Kind:   node.Kind,
			Path:   node.Path,
		})
	}
	return out
}

func normalizeAccess(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "read", "reads":
		return "read"
	case "write", "writes":
		return "write"
	default:
		return ""
	}
}
