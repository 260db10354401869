// Package patterns provides the storage-access pattern table. The table
// classifies source lines that touch a data store as reads or writes; the
// extractor attributes matches to the enclosing function or method.
package patterns

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	toml "github.com/pelletier/go-toml/v2"
)

// PatternsFileName is the default filename for a project pattern table
const PatternsFileName = "patterns.toml"

// AccessKind classifies a store interaction
type AccessKind string

const (
	// Read marks patterns that read from a store
	Read AccessKind = "read"
	// Write marks patterns that mutate a store
	Write AccessKind = "write"
)

// Pattern represents a declared pattern in patterns.toml
type Pattern struct {
	// Regex is the pattern matched against each source line
	Regex string `toml:"regex"`

	// Kind is "read" or "write"
	Kind string `toml:"kind"`

	// Description is an optional note on what the pattern detects
	Description string `toml:"description,omitempty"`
}

// PatternsFile represents the root structure of patterns.toml
type PatternsFile struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Patterns is the list of declared patterns
	Patterns []Pattern `toml:"pattern"`
}

// Rule is a compiled pattern
type Rule struct {
	Regex *regexp.Regexp
	Kind  AccessKind
	Raw   string
}

// Table holds the compiled pattern rules
type Table struct {
	rules []Rule
}

// LineMatch records one store-access hit in a file
type LineMatch struct {
	Line    int // 1-based
	Kind    AccessKind
	Pattern string
}

// defaultPatterns covers the common ORM and driver call shapes.
var defaultPatterns = []Pattern{
	{Regex: `\.execute\(`, Kind: "write", Description: "raw statement execution"},
	{Regex: `\.commit\(`, Kind: "write"},
	{Regex: `\.rollback\(`, Kind: "write"},
	{Regex: `session\.add\(`, Kind: "write"},
	{Regex: `session\.delete\(`, Kind: "write"},
	{Regex: `session\.commit\(`, Kind: "write"},
	{Regex: `\.query\(`, Kind: "read"},
	{Regex: `\.cursor\(`, Kind: "read"},
	{Regex: `\.connection`, Kind: "read"},
	{Regex: `\.fetchone\(|\.fetchall\(|\.fetchmany\(`, Kind: "read"},
	{Regex: `db\.session`, Kind: "read"},
	{Regex: `\bdatabase\b|\bDatabase\b`, Kind: "read"},
	{Regex: `SQLAlchemy`, Kind: "read"},
	{Regex: `\bModel\.`, Kind: "read"},
	{Regex: `\bmodels\.`, Kind: "read"},
}

// DefaultTable returns the built-in pattern table
func DefaultTable() *Table {
	t, err := compile(defaultPatterns)
	if err != nil {
		// Built-in patterns are fixed strings; a compile failure is a bug.
		panic(fmt.Sprintf("patterns: default table invalid: %v", err))
	}
	return t
}

// ParsePatternsFile parses a patterns.toml file from the given path
func ParsePatternsFile(filePath string) (*PatternsFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns.toml: %w", err)
	}

	var pf PatternsFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse patterns.toml: %w", err)
	}

	if pf.Version < 1 {
		pf.Version = 1
	}

	return &pf, nil
}

// LoadTable loads the pattern table for a project root. A missing
// <root>/.devchat/patterns.toml yields the default table.
func LoadTable(root string, stateDir string) (*Table, error) {
	filePath := filepath.Join(root, stateDir, PatternsFileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return DefaultTable(), nil
	}

	pf, err := ParsePatternsFile(filePath)
	if err != nil {
		return nil, err
	}

	return compile(pf.Patterns)
}

func compile(pats []Pattern) (*Table, error) {
	rules := make([]Rule, 0, len(pats))
	for _, p := range pats {
		kind := AccessKind(p.Kind)
		if kind != Read && kind != Write {
			return nil, fmt.Errorf("pattern %q: kind must be read or write, got %q", p.Regex, p.Kind)
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Regex, err)
		}
		rules = append(rules, Rule{Regex: re, Kind: kind, Raw: p.Regex})
	}
	return &Table{rules: rules}, nil
}

// Len returns the number of rules in the table
func (t *Table) Len() int {
	return len(t.rules)
}

// Scan matches every line of content against the table. A line can produce
// several matches; each rule reports at most once per line.
func (t *Table) Scan(content []byte) []LineMatch {
	var matches []LineMatch

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		for _, rule := range t.rules {
			if rule.Regex.MatchString(line) {
				matches = append(matches, LineMatch{
					Line:    lineNo,
					Kind:    rule.Kind,
					Pattern: rule.Raw,
				})
			}
		}
	}

	return matches
}
