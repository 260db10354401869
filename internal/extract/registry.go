package extract

import (
	"os"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"gopkg.in/yaml.v3"
)

// Language names as they appear in config, node records and scan reports.
const (
	LangPython     = "python"
	LangGo         = "go"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
)

// defaultExtensions maps file extensions to language names.
var defaultExtensions = map[string]string{
	".py":  LangPython,
	".go":  LangGo,
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
}

// grammarFor returns the tree-sitter grammar for a language name.
func grammarFor(lang string) *sitter.Language {
	switch lang {
	case LangPython:
		return python.GetLanguage()
	case LangGo:
		return golang.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	}
	return nil
}

// Registry decides which files are parseable and with which grammar.
// Extensions come from a built-in table filtered by the enabled language
// list; a languages.yaml override can add or remap extensions.
type Registry struct {
	byExt map[string]string
}

// NewRegistry builds a registry for the enabled languages. Unknown names
// are ignored; an empty list enables everything.
func NewRegistry(enabled []string) *Registry {
	on := make(map[string]bool, len(enabled))
	for _, lang := range enabled {
		on[strings.ToLower(strings.TrimSpace(lang))] = true
	}
	r := &Registry{byExt: make(map[string]string, len(defaultExtensions))}
	for ext, lang := range defaultExtensions {
		if len(on) == 0 || on[lang] {
			r.byExt[ext] = lang
		}
	}
	return r
}

// extensionOverrides is the shape of languages.yaml: a map from extension
// to language name, e.g. {".pyi": "python", ".mts": "typescript"}.
type extensionOverrides struct {
	Extensions map[string]string `yaml:"extensions"`
}

// LoadOverrides applies extension remappings from a languages.yaml file.
// A missing file is not an error; a malformed one is.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var ov extensionOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return err
	}
	for ext, lang := range ov.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		lang = strings.ToLower(strings.TrimSpace(lang))
		if grammarFor(lang) == nil {
			continue
		}
		r.byExt[ext] = lang
	}
	return nil
}

// ForPath resolves a file path to its language and grammar. ok is false
// for unsupported extensions.
func (r *Registry) ForPath(path string) (lang string, grammar *sitter.Language, ok bool) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", nil, false
	}
	lang, ok = r.byExt[strings.ToLower(path[idx:])]
	if !ok {
		return "", nil, false
	}
	return lang, grammarFor(lang), true
}

// Supports reports whether the path maps to an enabled language.
func (r *Registry) Supports(path string) bool {
	_, _, ok := r.ForPath(path)
	return ok
}

// Extensions returns the recognized extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Languages returns the distinct enabled language names, sorted.
func (r *Registry) Languages() []string {
	seen := make(map[string]bool, 4)
	for _, lang := range r.byExt {
		seen[lang] = true
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
