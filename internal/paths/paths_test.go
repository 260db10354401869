package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "app", "models")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(sub, "user.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Canonicalize(file, root)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if got != "app/models/user.py" {
		t.Errorf("Canonicalize = %q, want app/models/user.py", got)
	}
}

func TestCanonicalizeMissingFile(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "gone.py")

	got, err := Canonicalize(missing, root)
	if err != nil {
		t.Fatalf("Canonicalize on missing file should not error: %v", err)
	}
	if got != "gone.py" {
		t.Errorf("Canonicalize = %q, want gone.py", got)
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"inside", filepath.Join(root, "a", "b.py"), true},
		{"root itself", root, true},
		{"outside", filepath.Join(root, "..", "elsewhere.py"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinRoot(tt.path, root); got != tt.want {
				t.Errorf("IsWithinRoot(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestHasSuffixPath(t *testing.T) {
	tests := []struct {
		path   string
		suffix string
		want   bool
	}{
		{"app/models.py", "models.py", true},
		{"models.py", "models.py", true},
		{"app/oldmodels.py", "models.py", false},
		{"app/utils/models.py", "utils/models.py", true},
		{"app/models.py", "app/models.py", true},
		{"app/models.py", "nope.py", false},
	}

	for _, tt := range tests {
		if got := HasSuffixPath(tt.path, tt.suffix); got != tt.want {
			t.Errorf("HasSuffixPath(%q, %q) = %v, want %v", tt.path, tt.suffix, got, tt.want)
		}
	}
}

func TestJoinRoundTrip(t *testing.T) {
	root := t.TempDir()
	joined := Join(root, "app/models/user.py")
	want := filepath.Join(root, "app", "models", "user.py")
	if joined != want {
		t.Errorf("Join = %q, want %q", joined, want)
	}
}
