// Package index builds the code graph. The indexer owns all writes: it
// walks the tree, extracts files, resolves facts into edges, embeds
// summaries and publishes immutable snapshots. The watcher feeds it
// debounced change batches.
package index

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"devchat/internal/config"
	"devchat/internal/extract"
	"devchat/internal/paths"
)

// SourceFile is one indexable file found on a walk.
type SourceFile struct {
	Path string // canonical, repo-relative
	Abs  string
}

// Walker lists the source files under a root, honoring the ignore globs,
// the project .gitignore and the size cap. Ignore globs match both the
// full relative path and the basename, so "node_modules" prunes the tree
// at any depth and "**/*_gen.py" works as written.
type Walker struct {
	root        string
	registry    *extract.Registry
	ignoreGlobs []string
	maxFileSize int64
	gitignore   *ignore.GitIgnore
}

// NewWalker builds a walker for root. A missing or unreadable .gitignore
// simply disables gitignore filtering.
func NewWalker(root string, registry *extract.Registry, scan config.ScanConfig, maxFileSize int) *Walker {
	w := &Walker{
		root:        root,
		registry:    registry,
		ignoreGlobs: scan.Ignore,
		maxFileSize: int64(maxFileSize),
	}
	if scan.RespectGitignore {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			w.gitignore = gi
		}
	}
	return w
}

// Ignored reports whether a canonical relative path is excluded from
// indexing.
func (w *Walker) Ignored(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	base := path.Base(rel)
	for _, glob := range w.ignoreGlobs {
		if glob == "" {
			continue
		}
		if base == glob || rel == glob {
			return true
		}
		if ok, err := doublestar.Match(glob, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(glob, base); err == nil && ok {
			return true
		}
	}
	if w.gitignore != nil && w.gitignore.MatchesPath(rel) {
		return true
	}
	return false
}

// Selects reports whether a file path would be indexed: supported language,
// not ignored.
func (w *Walker) Selects(rel string) bool {
	return !w.Ignored(rel, false) && w.registry.Supports(rel)
}

// DeleteRelevant reports whether a removed path may have contributed to
// the index: a supported source file, or an extensionless path that could
// have been a directory. The path is gone, so this is a guess by name.
func (w *Walker) DeleteRelevant(rel string) bool {
	if w.Ignored(rel, false) {
		return false
	}
	if w.registry.Supports(rel) {
		return true
	}
	return !strings.Contains(path.Base(rel), ".")
}

// Walk returns every indexable file under the root, sorted by path.
// Unreadable entries are skipped, not fatal.
func (w *Walker) Walk() ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := paths.Canonicalize(p, w.root)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Ignored(rel, false) || !w.registry.Supports(rel) {
			return nil
		}
		if w.maxFileSize > 0 {
			if info, err := d.Info(); err != nil || info.Size() > w.maxFileSize {
				return nil
			}
		}
		files = append(files, SourceFile{Path: rel, Abs: p})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ListUnder returns the indexable files inside one subdirectory, used when
// a watched directory appears wholesale.
func (w *Walker) ListUnder(relDir string) []SourceFile {
	abs := paths.Join(w.root, relDir)
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil
	}
	var files []SourceFile
	filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, err := paths.Canonicalize(p, w.root)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Selects(rel) {
			files = append(files, SourceFile{Path: rel, Abs: p})
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}
