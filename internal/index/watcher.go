package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"devchat/internal/errors"
	"devchat/internal/logging"
	"devchat/internal/paths"
)

// WatchOptions control the watcher's queue depth and debounce window.
type WatchOptions struct {
	Debounce  time.Duration
	QueueSize int
}

// Watcher turns raw fsnotify events into debounced change batches for the
// indexer. Events pass through a bounded queue; when the queue overflows
// the pending batch is thrown away and a full rescan forced, so a change
// storm degrades to one big scan instead of unbounded memory.
type Watcher struct {
	root   string
	walker *Walker
	logger *logging.Logger
	opts   WatchOptions
	apply  func(ctx context.Context, changes []Change)
	rescan func(ctx context.Context)

	fsw        *fsnotify.Watcher
	events     chan Change
	overflowed atomic.Bool

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher over root. apply and rescan run on the
// watcher's own goroutine, one batch at a time.
func NewWatcher(root string, walker *Walker, logger *logging.Logger, opts WatchOptions, apply func(context.Context, []Change), rescan func(context.Context)) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "create filesystem watcher", err)
	}
	return &Watcher{
		root:   root,
		walker: walker,
		logger: logger.With(map[string]interface{}{"component": "watcher"}),
		opts:   opts,
		apply:  apply,
		rescan: rescan,
		fsw:    fsw,
		events: make(chan Change, opts.QueueSize),
		done:   make(chan struct{}),
	}, nil
}

// Start registers the directory tree and launches the event and debounce
// loops.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		w.fsw.Close()
		return errors.Wrap(errors.InternalError, "register watch tree", err)
	}
	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)
	w.logger.Info("watching for changes", map[string]interface{}{
		"root":       w.root,
		"debounceMs": w.opts.Debounce.Milliseconds(),
		"queueSize":  w.opts.QueueSize,
	})
	return nil
}

// Stop closes the watcher and waits for its goroutines to drain.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, cerr := paths.Canonicalize(p, w.root)
		if cerr != nil {
			return nil
		}
		if w.walker.Ignored(rel, true) {
			return filepath.SkipDir
		}
		if aerr := w.fsw.Add(p); aerr != nil {
			w.logger.Warn("watch add failed", map[string]interface{}{
				"path":  rel,
				"error": aerr.Error(),
			})
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := paths.Canonicalize(ev.Name, w.root)
	if err != nil || rel == "." {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, serr := os.Stat(ev.Name); serr == nil && info.IsDir() {
			// a new directory brings a subtree: watch it and queue its files
			if w.walker.Ignored(rel, true) {
				return
			}
			w.addRecursive(ev.Name)
			for _, f := range w.walker.ListUnder(rel) {
				w.enqueue(Change{Path: f.Path, Op: OpModify})
			}
			return
		}
		if w.walker.Selects(rel) {
			w.enqueue(Change{Path: rel, Op: OpModify})
		}
	case ev.Op&fsnotify.Write != 0:
		if w.walker.Selects(rel) {
			w.enqueue(Change{Path: rel, Op: OpModify})
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.walker.DeleteRelevant(rel) {
			w.enqueue(Change{Path: rel, Op: OpDelete})
		}
	}
}

func (w *Watcher) enqueue(c Change) {
	select {
	case w.events <- c:
	default:
		w.overflowed.Store(true)
	}
}

// debounceLoop collects events into a batch. The window opens on the first
// event and flushes when it elapses; an overflow during the window voids
// the batch and forces a full rescan instead.
func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	var batch []Change
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case c := <-w.events:
			if len(batch) == 0 {
				timer.Reset(w.opts.Debounce)
			}
			batch = append(batch, c)
		case <-timer.C:
			if w.overflowed.Swap(false) {
				w.logger.Warn("event queue overflow, forcing full rescan", map[string]interface{}{
					"code":    string(errors.IndexOverload),
					"pending": len(batch),
				})
				batch = nil
				w.rescan(ctx)
				continue
			}
			if len(batch) > 0 {
				changes := batch
				batch = nil
				w.apply(ctx, changes)
			}
		}
	}
}
