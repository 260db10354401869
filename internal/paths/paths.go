// Package paths normalizes file paths into the canonical repo-relative form
// used for node ids. Canonical paths always use forward slashes.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the project root
// - Converts backslashes to forward slashes
func Canonicalize(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot checks if a path is inside the project root
func IsWithinRoot(path string, root string) bool {
	canonical, err := Canonicalize(path, root)
	if err != nil {
		return false
	}

	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// Normalize converts backslashes to forward slashes in an already relative path
func Normalize(path string) string {
	return filepath.ToSlash(path)
}

// Join joins the project root with a canonical path using OS separators
func Join(root string, canonicalPath string) string {
	parts := strings.Split(Normalize(canonicalPath), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// HasSuffixPath reports whether path ends with suffix at a path component
// boundary, so "app/models.py" matches "models.py" but "app/oldmodels.py"
// does not.
func HasSuffixPath(path string, suffix string) bool {
	if path == suffix {
		return true
	}
	return strings.HasSuffix(path, "/"+suffix)
}
