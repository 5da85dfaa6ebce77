// Package clone implements the near-duplicate/clone detector:
// shingling, MinHash signatures, banded LSH candidate generation, structural
// gates, stop-motif down-weighting, APTED verification, auto-calibration, and
// payoff-ranked output.
package clone

import (
	"regexp"
	"strings"

	"github.com/sibyllinesoft/valknut/internal/interner"
)

// commentPattern strips common single-line and block comment forms before
// shingling, language-neutral.
var commentPattern = regexp.MustCompile(`//[^\n]*|#[^\n]*|/\*[\s\S]*?\*/`)

// tokenPattern splits source into whitespace-delimited identifier/operator
// tokens for shingling.
var tokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|[0-9]+(?:\.[0-9]+)?|[^\sA-Za-z0-9_]`)

// Tokenize strips comments and blank lines, then splits into tokens.
func Tokenize(source string) []string {
	stripped := commentPattern.ReplaceAllString(source, " ")
	var lines []string
	for _, line := range strings.Split(stripped, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return tokenPattern.FindAllString(strings.Join(lines, "\n"), -1)
}

// Shingles produces the sequence of overlapping k-token shingles from tokens
// (a k below 1 is treated as 1).
func Shingles(tokens []string, k int) []string {
	if k < 1 {
		k = 1
	}
	if len(tokens) < k {
		if len(tokens) == 0 {
			return nil
		}
		return []string{strings.Join(tokens, " ")}
	}
	out := make([]string, 0, len(tokens)-k+1)
	for i := 0; i+k <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+k], " "))
	}
	return out
}

// ShingleSet returns shingles with their multiplicity, used to build the
// TF-IDF corpus for the weighted variant (k=9 recommended). Each shingle is
// interned before counting: the same k-gram recurs constantly across a large
// corpus, so canonicalizing it through the shared interner means every
// occurrence after the first reuses one string instead of allocating a copy.
func ShingleSet(source string, k int) map[string]int {
	shingles := Shingles(Tokenize(source), k)
	counts := make(map[string]int, len(shingles))
	for _, s := range shingles {
		canonical := interner.Resolve(interner.Intern(s))
		counts[canonical]++
	}
	return counts
}
