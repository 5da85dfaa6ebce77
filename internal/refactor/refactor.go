// Package refactor pattern-matches over AST-derived metrics to emit
// refactoring opportunities, and joins a scored entity with its location,
// issues, and suggestions into the public RefactoringCandidate shape. The
// rule thresholds below are this package's own, built in the style of
// internal/complexity.Issues.
package refactor

import (
	"sort"
	"strings"

	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/entity"
	"github.com/sibyllinesoft/valknut/internal/scoring"
)

// Refactoring-type codes, covering both metric-driven issues
// ("extract_method") and coverage-driven suggestions ("add_test").
const (
	ExtractMethod        = "extract_method"
	ReduceComplexity      = "reduce_complexity"
	SimplifyConditionals  = "simplify_conditionals"
	ReduceParameters      = "reduce_parameters"
	SplitModule           = "split_module"
	ReduceCoupling        = "reduce_coupling"
	ImproveDocumentation  = "improve_documentation"
	DeduplicateCode       = "deduplicate_code"
	AddTest               = "add_test"
)

// Thresholds are the configurable cutoffs the pattern-matching rules apply.
// There is no dedicated config section for this detector upstream, so these
// mirror internal/complexity.Thresholds's package-local-default style.
type Thresholds struct {
	LongMethodLOC      int
	MaxParameters      int
	MaxNestingDepth     int
	HighHalsteadEffort float64
}

// DefaultThresholds are widely used cutoffs for the corresponding code smells.
func DefaultThresholds() Thresholds {
	return Thresholds{LongMethodLOC: 40, MaxParameters: 5, MaxNestingDepth: 4, HighHalsteadEffort: 10000}
}

// Suggestion is one suggested refactoring action.
type Suggestion struct {
	RefactoringType string
	Description     string
	Priority        float64
	Effort          float64
	Impact          float64
}

// Issue is one refactoring-relevant finding within an entity.
type Issue struct {
	Category             string
	Description          string
	Severity             float64
	ContributingFeatures []scoring.FeatureContribution
}

// DetectIssues pattern-matches m (complexity.Metrics) and source against
// Thresholds, returning the issues found and the suggestion each implies.
func DetectIssues(m complexity.Metrics, source string, th Thresholds) ([]Issue, []Suggestion) {
	var issues []Issue
	var suggestions []Suggestion

	if m.LinesOfCode > th.LongMethodLOC {
		severity := rangeSeverity(float64(m.LinesOfCode), float64(th.LongMethodLOC), float64(th.LongMethodLOC)*3)
		issues = append(issues, Issue{
			Category:    "complexity",
			Description: "method body is long enough to obscure a single responsibility",
			Severity:    severity,
			ContributingFeatures: []scoring.FeatureContribution{
				{Name: "lines_of_code", Value: float64(m.LinesOfCode)},
			},
		})
		suggestions = append(suggestions, Suggestion{
			RefactoringType: ExtractMethod,
			Description:     "extract cohesive blocks of this method into smaller, named methods",
			Priority:        severity,
			Effort:          0.5,
			Impact:          0.7,
		})
	}

	if m.Cyclomatic >= 10 {
		severity := rangeSeverity(float64(m.Cyclomatic), 10, 30)
		issues = append(issues, Issue{
			Category:    "complexity",
			Description: "cyclomatic complexity indicates many independent execution paths",
			Severity:    severity,
			ContributingFeatures: []scoring.FeatureContribution{
				{Name: "cyclomatic_complexity", Value: float64(m.Cyclomatic)},
			},
		})
		suggestions = append(suggestions, Suggestion{
			RefactoringType: ReduceComplexity,
			Description:     "reduce the number of independent branches, e.g. via early returns or a lookup table",
			Priority:        severity,
			Effort:          0.6,
			Impact:          0.8,
		})
	}

	if m.MaxNestingDepth > th.MaxNestingDepth {
		severity := rangeSeverity(float64(m.MaxNestingDepth), float64(th.MaxNestingDepth), float64(th.MaxNestingDepth)*2)
		issues = append(issues, Issue{
			Category:    "complexity",
			Description: "nesting depth makes the control flow hard to follow at a glance",
			Severity:    severity,
			ContributingFeatures: []scoring.FeatureContribution{
				{Name: "max_nesting_depth", Value: float64(m.MaxNestingDepth)},
			},
		})
		suggestions = append(suggestions, Suggestion{
			RefactoringType: SimplifyConditionals,
			Description:     "flatten nested conditionals with guard clauses or by extracting the inner block",
			Priority:        severity,
			Effort:          0.4,
			Impact:          0.6,
		})
	}

	if paramCount := countParameters(source); paramCount > th.MaxParameters {
		severity := rangeSeverity(float64(paramCount), float64(th.MaxParameters), float64(th.MaxParameters)*2)
		issues = append(issues, Issue{
			Category:    "complexity",
			Description: "parameter count suggests the entity is doing more than one job or needs a parameter object",
			Severity:    severity,
			ContributingFeatures: []scoring.FeatureContribution{
				{Name: "parameter_count", Value: float64(paramCount)},
			},
		})
		suggestions = append(suggestions, Suggestion{
			RefactoringType: ReduceParameters,
			Description:     "group related parameters into a struct or split the function by responsibility",
			Priority:        severity,
			Effort:          0.4,
			Impact:          0.5,
		})
	}

	if m.Halstead.Effort > th.HighHalsteadEffort {
		severity := rangeSeverity(m.Halstead.Effort, th.HighHalsteadEffort, th.HighHalsteadEffort*5)
		issues = append(issues, Issue{
			Category:    "complexity",
			Description: "Halstead effort is high relative to the rest of the codebase",
			Severity:    severity,
			ContributingFeatures: []scoring.FeatureContribution{
				{Name: "halstead_effort", Value: m.Halstead.Effort},
			},
		})
	}

	return issues, suggestions
}

// CountParameters exposes countParameters to callers outside this package
// (the pipeline orchestrator needs the same count DetectIssues computed
// internally, to carry as its own "parameter_count" scoring feature).
func CountParameters(source string) int {
	return countParameters(source)
}

// countParameters counts the top-level comma-separated entries inside the
// first balanced parenthesis group in source — a language-agnostic
// approximation of a declaration's parameter list that avoids re-parsing the
// entity's AST a second time just for this one count.
func countParameters(source string) int {
	open := strings.IndexByte(source, '(')
	if open < 0 {
		return 0
	}
	depth := 0
	var body strings.Builder
	for i := open; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				goto done
			}
		}
		if depth >= 1 {
			body.WriteByte(source[i])
		}
	}
done:
	text := strings.TrimSpace(body.String())
	if text == "" {
		return 0
	}
	count := 1
	depth = 0
	for _, r := range text {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}

// rangeSeverity maps x linearly onto [0,1] between lo (0) and hi (1), clamped.
func rangeSeverity(x, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	v := (x - lo) / (hi - lo)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// Candidate is the public, scored-and-joined refactoring candidate: a
// ScoringResult joined with its source location, issues, and suggestions.
type Candidate struct {
	scoring.ScoringResult

	Name      string
	FilePath  string
	LineRange entity.LineRange

	Issues      []Issue
	Suggestions []Suggestion
}

// Location carries the display fields a ScoringResult alone doesn't have.
type Location struct {
	Name      string
	FilePath  string
	LineRange entity.LineRange
}

// BuildCandidate joins one entity's ScoringResult with its location and the
// issues/suggestions supplied for it into the public Candidate shape above.
// The pipeline supplies this package's own DetectIssues findings; cohesion,
// structure and coverage findings are not translated into this shape.
func BuildCandidate(result scoring.ScoringResult, loc Location, issues []Issue, suggestions []Suggestion) Candidate {
	return Candidate{
		ScoringResult: result,
		Name:          loc.Name,
		FilePath:      loc.FilePath,
		LineRange:     loc.LineRange,
		Issues:        issues,
		Suggestions:   suggestions,
	}
}

// BuildCandidates joins every result in results with its location (looked up
// via locations) and its issues/suggestions (via issuesByEntity/
// suggestionsByEntity), skipping results below minScore (a result with no
// refactoring need at all produces no candidate), sorted by entity id for
// deterministic emission.
func BuildCandidates(
	results []scoring.ScoringResult,
	locations map[string]Location,
	issuesByEntity map[string][]Issue,
	suggestionsByEntity map[string][]Suggestion,
	minScore float64,
) []Candidate {
	var out []Candidate
	for _, r := range results {
		if r.OverallScore < minScore {
			continue
		}
		loc := locations[r.EntityID]
		out = append(out, BuildCandidate(r, loc, issuesByEntity[r.EntityID], suggestionsByEntity[r.EntityID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}
