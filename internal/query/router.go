package query

import (
	"regexp"
	"strings"
)

// routed is the outcome of classifying one question.
type routed struct {
	intent Intent
	target string
	access string // store_interactions narrowing: "", "read" or "write"
}

var (
	impactWords = regexp.MustCompile(`(?i)\b(impact|impacts|impacted|affect|affects|affected|change|changes|changing|changed|break|breaks|breaking)\b`)
	pathToken   = regexp.MustCompile(`[\w./-]*\w\.(?:py|go|js|jsx|mjs|cjs|ts|tsx)\b`)

	storeWords = regexp.MustCompile(`(?i)\b(database|db|sql|store|storage|persistence)\b`)
	readWords  = regexp.MustCompile(`(?i)\b(read|reads|reading|query|queries|fetch|fetches|select|selects)\b`)
	writeWords = regexp.MustCompile(`(?i)\b(write|writes|writing|insert|inserts|update|updates|save|saves|delete|deletes)\b`)

	callerWords = regexp.MustCompile(`(?i)\b(function|functions|call|calls|called|calling|caller|callers|method|methods|invoke|invokes)\b`)
	callToken   = regexp.MustCompile(`(\w+)\s*\(`)

	definitionWords = regexp.MustCompile(`(?i)\b(defined|define|definition|declared|declaration)\b|where\s+is\b`)
	identToken      = regexp.MustCompile(`[A-Za-z_]\w*`)
)

// definitionStopwords are question scaffolding, never a symbol target.
var definitionStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "class": {}, "declaration": {}, "declared": {},
	"define": {}, "defined": {}, "definition": {}, "does": {}, "file": {},
	"find": {}, "function": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "located": {}, "me": {}, "method": {}, "of": {}, "show": {},
	"symbol": {}, "the": {}, "this": {}, "type": {}, "variable": {},
	"what": {}, "where": {}, "which": {}, "who": {},
}

// classify maps a question to an intent by first match against the rule
// table. Unmatched questions fall through to semantic search over the
// whole text.
func classify(question string) routed {
	q := strings.TrimSpace(question)
	lower := strings.ToLower(q)

	if impactWords.MatchString(lower) {
		if p := pathToken.FindString(q); p != "" {
			return routed{intent: IntentImpactAnalysis, target: p}
		}
	}

	if storeWords.MatchString(lower) {
		r := routed{intent: IntentStoreInteractions}
		reads := readWords.MatchString(lower)
		writes := writeWords.MatchString(lower)
		switch {
		case reads && !writes:
			r.access = "read"
		case writes && !reads:
			r.access = "write"
		}
		return r
	}

	if callerWords.MatchString(lower) {
		if m := callToken.FindStringSubmatch(q); m != nil {
			return routed{intent: IntentFindCallers, target: m[1]}
		}
	}

	if definitionWords.MatchString(lower) {
		if name := definitionTarget(q); name != "" {
			return routed{intent: IntentFindDefinition, target: name}
		}
	}

	return routed{intent: IntentSemanticSearch, target: q}
}

// definitionTarget picks the symbol a definition question is about: the
// last identifier that is not question scaffolding.
func definitionTarget(q string) string {
	tokens := identToken.FindAllString(q, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		if _, stop := definitionStopwords[strings.ToLower(tokens[i])]; !stop {
			return tokens[i]
		}
	}
	return ""
}
