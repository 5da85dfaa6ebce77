// Package complexity computes cyclomatic, cognitive, Halstead, nesting, and
// maintainability-index metrics per entity and per file (), with the
// exact formulas and debt weights carried over from the original implementation's
// complexity detector.
package complexity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/entity"
)

// Metrics is the full set of complexity measurements for one entity.
type Metrics struct {
	EntityID             string
	Cyclomatic           int
	Cognitive            int
	MaxNestingDepth      int
	Halstead             Halstead
	LinesOfCode          int
	MaintainabilityIndex float64
	TechnicalDebtScore   float64
}

// Halstead holds the distinct/total operator and operand counts and their
// derived measures.
type Halstead struct {
	DistinctOperators int
	DistinctOperands  int
	TotalOperators    int
	TotalOperands     int
	Length            int
	Vocabulary        int
	Volume            float64
	Difficulty        float64
	Effort            float64
}

// Severity maps a configurable threshold crossing to an issue severity.
type Severity string

const (
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Issue is a single complexity finding raised at a configured threshold.
type Issue struct {
	EntityID string
	Code     string
	Severity Severity
	Message  string
}

// Thresholds are the configurable {medium, high, very_high} cutoffs for
// cyclomatic complexity (internal/config's complexity_threshold feeds this).
type Thresholds struct {
	Medium   float64
	High     float64
	VeryHigh float64
}

// DefaultThresholds mirrors widely used cyclomatic-complexity cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 10, High: 20, VeryHigh: 30}
}

func halsteadOperands(tokens []string, isOperator func(string) bool) Halstead {
	distinctOps := make(map[string]bool)
	distinctOperands := make(map[string]bool)
	var h Halstead
	for _, tok := range tokens {
		if isOperator(tok) {
			distinctOps[tok] = true
			h.TotalOperators++
		} else {
			distinctOperands[tok] = true
			h.TotalOperands++
		}
	}
	h.DistinctOperators = len(distinctOps)
	h.DistinctOperands = len(distinctOperands)
	h.Length = h.TotalOperators + h.TotalOperands
	h.Vocabulary = h.DistinctOperators + h.DistinctOperands
	if h.Vocabulary > 0 {
		h.Volume = float64(h.Length) * math.Log2(float64(h.Vocabulary))
	}
	if h.DistinctOperands > 0 {
		h.Difficulty = (float64(h.DistinctOperators) / 2) * (float64(h.TotalOperands) / float64(h.DistinctOperands))
	}
	h.Effort = h.Difficulty * h.Volume
	return h
}

// operatorPattern recognizes common operator punctuation shared across the
// supported grammars; everything else (identifiers, literals, keywords acting as
// values) is treated as an operand. This mirrors the original complexity
// detector's operator/operand split, which works at the token level rather than
// walking a language-specific operator table.
var operatorPattern = regexp.MustCompile(`^[-+*/%=<>!&|^~(){}\[\];,.:]+$`)

var tokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|[0-9]+(?:\.[0-9]+)?|[-+*/%=<>!&|^~(){}\[\];,.:]+|"[^"]*"|'[^']*'`)

func tokenize(source string) []string {
	return tokenPattern.FindAllString(source, -1)
}

// ComputeHalstead computes Halstead metrics directly from an entity's source text.
func ComputeHalstead(source string) Halstead {
	tokens := tokenize(source)
	return halsteadOperands(tokens, func(t string) bool { return operatorPattern.MatchString(t) })
}

// MaintainabilityIndex is the Microsoft form, clamped to [0,100].
func MaintainabilityIndex(volume float64, cyclomatic int, loc int) float64 {
	mi := 171 - 5.2*math.Log(math.Max(volume, 1)) - 0.23*float64(cyclomatic) - 16.2*math.Log(math.Max(float64(loc), 1))
	if mi < 0 {
		mi = 0
	}
	if mi > 100 {
		mi = 100
	}
	return mi
}

// TechnicalDebtScore is reported as a 0-100 ratio.
func TechnicalDebtScore(cyclomatic, cognitive, loc int) float64 {
	score := 0.4*math.Min(float64(cyclomatic)/20, 1) +
		0.4*math.Min(float64(cognitive)/50, 1) +
		0.2*math.Min(float64(loc)/100, 1)
	return score * 100
}

// linesOfCode counts non-blank lines in source.
func linesOfCode(source string) int {
	lines := strings.Split(source, "\n")
	count := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

// ComputeForEntity computes the full Metrics for a single entity.
func ComputeForEntity(ctx *astsvc.Context, language string, e entity.CodeEntity) Metrics {
	points := astsvc.ForEntity(ctx, language, uint(e.ByteRange.Start), uint(e.ByteRange.End))
	cyclomatic := astsvc.CyclomaticFromPoints(points)
	cognitive := astsvc.CognitiveFromPoints(points)
	maxDepth := astsvc.MaxNestingDepth(points)
	loc := linesOfCode(e.SourceCode)
	halstead := ComputeHalstead(e.SourceCode)

	return Metrics{
		EntityID:             e.ID,
		Cyclomatic:           cyclomatic,
		Cognitive:            cognitive,
		MaxNestingDepth:      maxDepth,
		Halstead:             halstead,
		LinesOfCode:          loc,
		MaintainabilityIndex: MaintainabilityIndex(halstead.Volume, cyclomatic, loc),
		TechnicalDebtScore:   TechnicalDebtScore(cyclomatic, cognitive, loc),
	}
}

// Issues raises configurable-threshold findings for m against thresholds.
func Issues(m Metrics, th Thresholds) []Issue {
	var issues []Issue
	switch {
	case float64(m.Cyclomatic) >= th.VeryHigh:
		issues = append(issues, Issue{EntityID: m.EntityID, Code: "CMPLX", Severity: SeverityCritical, Message: "cyclomatic complexity is very high"})
	case float64(m.Cyclomatic) >= th.High:
		issues = append(issues, Issue{EntityID: m.EntityID, Code: "CMPLX", Severity: SeverityHigh, Message: "cyclomatic complexity is high"})
	case float64(m.Cyclomatic) >= th.Medium:
		issues = append(issues, Issue{EntityID: m.EntityID, Code: "CMPLX", Severity: SeverityModerate, Message: "cyclomatic complexity is elevated"})
	}
	return issues
}

// FileSummary aggregates per-entity metrics into file-level totals, sorted by
// entity id for deterministic emission.
type FileSummary struct {
	FilePath             string
	TotalCyclomatic      int
	TotalCognitive       int
	AvgMaintainability    float64
	Entities             []Metrics
}

// Summarize builds a FileSummary from a set of per-entity Metrics belonging to
// the same file.
func Summarize(filePath string, metrics []Metrics) FileSummary {
	sorted := make([]Metrics, len(metrics))
	copy(sorted, metrics)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EntityID < sorted[j].EntityID })

	s := FileSummary{FilePath: filePath, Entities: sorted}
	if len(sorted) == 0 {
		return s
	}
	var maintSum float64
	for _, m := range sorted {
		s.TotalCyclomatic += m.Cyclomatic
		s.TotalCognitive += m.Cognitive
		maintSum += m.MaintainabilityIndex
	}
	s.AvgMaintainability = maintSum / float64(len(sorted))
	return s
}
