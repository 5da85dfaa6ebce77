// Package cohesion implements the semantic cohesion detector:
// symbol-only text embeddings rolled up from entity → file → folder, cohesion
// via vector concentration, doc↔code alignment, and outlier detection.
package cohesion

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/surgebase/porter2"

	"github.com/sibyllinesoft/valknut/internal/config"
)

// stopTokens are filtered out before stemming: control-flow keywords and
// filler words common across the supported languages, none of which carry
// topical signal for an embedding.
var stopTokens = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "in": true,
	"is": true, "this": true, "that": true, "and": true, "or": true, "if": true,
	"else": true, "for": true, "while": true, "return": true, "self": true,
	"def": true, "func": true, "function": true, "class": true, "struct": true,
	"fn": true, "pub": true, "impl": true, "let": true, "var": true, "const": true,
	"new": true, "get": true, "set": true, "with": true, "from": true, "as": true,
	"import": true, "export": true, "default": true, "none": true, "null": true,
	"true": true, "false": true, "nil": true,
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
var nonWord = regexp.MustCompile(`[^A-Za-z0-9]+`)

// isStopToken reports whether tok carries no topical signal and should be
// dropped before it reaches the TF-IDF corpus.
func isStopToken(tok string) bool {
	if len(tok) == 0 {
		return true
	}
	return stopTokens[strings.ToLower(tok)]
}

// tokenizeName splits an identifier on snake_case and camelCase boundaries,
// lower-cases and stems each piece with Porter2, and drops stop tokens and
// anything shorter than minLength.
func tokenizeName(name string, minLength int) []string {
	spaced := camelBoundary.ReplaceAllString(name, "$1 $2")
	parts := nonWord.Split(spaced, -1)

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		lower := strings.ToLower(p)
		if len(lower) < minLength || isStopToken(lower) {
			continue
		}
		tokens = append(tokens, porter2.Stem(lower))
	}
	return tokens
}

// ExtractedSymbols is the per-entity token bag extractor.rs's
// CohesionEntityExtractor builds: name tokens, signature tokens, and
// referenced-symbol tokens, kept separate so TfIdfCalculator can still weigh
// them uniformly as one corpus document.
type ExtractedSymbols struct {
	Kind              string
	NameTokens        []string
	SignatureTokens   []string
	ReferencedSymbols []string
}

// AllTokens flattens the three token groups into one document for the
// TF-IDF corpus, step 1.
func (s ExtractedSymbols) AllTokens() []string {
	out := make([]string, 0, len(s.NameTokens)+len(s.SignatureTokens)+len(s.ReferencedSymbols))
	out = append(out, s.NameTokens...)
	out = append(out, s.SignatureTokens...)
	out = append(out, s.ReferencedSymbols...)
	return out
}

// TfIdfCalculator tracks document frequency across every entity's token bag
// in a file set, so SelectTopSymbols can pick the most informative (rarest)
// tokens for each entity's embedding text.
type TfIdfCalculator struct {
	cfg       config.CohesionSymbols
	docFreq   map[string]int
	totalDocs int
}

// NewTfIdfCalculator creates an empty corpus accumulator.
func NewTfIdfCalculator(cfg config.CohesionSymbols) *TfIdfCalculator {
	return &TfIdfCalculator{cfg: cfg, docFreq: make(map[string]int)}
}

// AddDocument registers one entity's token bag as a document in the corpus.
func (t *TfIdfCalculator) AddDocument(tokens []string) {
	t.totalDocs++
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		t.docFreq[tok]++
	}
}

// TotalDocuments returns how many documents were added to the corpus.
func (t *TfIdfCalculator) TotalDocuments() int {
	return t.totalDocs
}

// idf computes log(N / df) for a token, using Laplace smoothing so an
// unseen token (df=0) still gets a high but finite weight instead of
// dividing by zero.
func (t *TfIdfCalculator) idf(tok string) float64 {
	df := t.docFreq[tok]
	n := t.totalDocs
	return math.Log(float64(n+1) / float64(df+1))
}

// SelectTopSymbols picks the MaxInformativeSymbols most informative (highest
// tf·idf) distinct tokens out of tokens, step 1. Ties break
// by first-seen order for determinism.
func (t *TfIdfCalculator) SelectTopSymbols(tokens []string) []string {
	tf := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := tf[tok]; !ok {
			order = append(order, tok)
		}
		tf[tok]++
	}

	type scored struct {
		tok   string
		score float64
		pos   int
	}
	scoredToks := make([]scored, 0, len(order))
	for i, tok := range order {
		scoredToks = append(scoredToks, scored{tok: tok, score: float64(tf[tok]) * t.idf(tok), pos: i})
	}
	sort.SliceStable(scoredToks, func(i, j int) bool {
		if scoredToks[i].score != scoredToks[j].score {
			return scoredToks[i].score > scoredToks[j].score
		}
		return scoredToks[i].pos < scoredToks[j].pos
	})

	limit := t.cfg.MaxInformativeSymbols
	if limit <= 0 || limit > len(scoredToks) {
		limit = len(scoredToks)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = scoredToks[i].tok
	}
	return out
}
