package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/entity"
	"github.com/sibyllinesoft/valknut/internal/scoring"
)

func TestCountParametersCountsTopLevelCommas(t *testing.T) {
	assert.Equal(t, 0, countParameters("func noArgs()"))
	assert.Equal(t, 1, countParameters("func one(a int)"))
	assert.Equal(t, 3, countParameters("func three(a int, b string, c []int)"))
}

func TestCountParametersIgnoresCommasInsideNestedBrackets(t *testing.T) {
	assert.Equal(t, 2, countParameters("func f(a map[string]int, b func(x, y int) int)"))
}

func TestDetectIssuesFlagsLongMethod(t *testing.T) {
	m := complexity.Metrics{LinesOfCode: 100, Cyclomatic: 2}
	issues, suggestions := DetectIssues(m, "func f() {}", DefaultThresholds())
	require.NotEmpty(t, issues)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, ExtractMethod, suggestions[0].RefactoringType)
}

func TestDetectIssuesFlagsHighCyclomaticComplexity(t *testing.T) {
	m := complexity.Metrics{LinesOfCode: 10, Cyclomatic: 25}
	issues, suggestions := DetectIssues(m, "func f() {}", DefaultThresholds())
	require.NotEmpty(t, issues)
	found := false
	for _, s := range suggestions {
		if s.RefactoringType == ReduceComplexity {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDetectIssuesFlagsTooManyParameters(t *testing.T) {
	m := complexity.Metrics{LinesOfCode: 10, Cyclomatic: 2}
	src := "func f(a, b, c, d, e, f int)"
	issues, suggestions := DetectIssues(m, src, DefaultThresholds())
	require.NotEmpty(t, issues)
	found := false
	for _, s := range suggestions {
		if s.RefactoringType == ReduceParameters {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDetectIssuesCleanEntityHasNoFindings(t *testing.T) {
	m := complexity.Metrics{LinesOfCode: 5, Cyclomatic: 1, MaxNestingDepth: 1}
	issues, suggestions := DetectIssues(m, "func f(a int) {}", DefaultThresholds())
	assert.Empty(t, issues)
	assert.Empty(t, suggestions)
}

func TestRangeSeverityClampsToUnitInterval(t *testing.T) {
	assert.Equal(t, 0.0, rangeSeverity(-5, 0, 10))
	assert.Equal(t, 1.0, rangeSeverity(50, 0, 10))
	assert.InDelta(t, 0.5, rangeSeverity(5, 0, 10), 1e-9)
}

func TestBuildCandidatesSkipsBelowMinScoreAndSortsByEntityID(t *testing.T) {
	results := []scoring.ScoringResult{
		{EntityID: "b.go:function:0", OverallScore: 0.9},
		{EntityID: "a.go:function:0", OverallScore: 0.9},
		{EntityID: "c.go:function:0", OverallScore: 0.1},
	}
	locations := map[string]Location{
		"a.go:function:0": {Name: "Foo", FilePath: "a.go", LineRange: entity.LineRange{Start: 1, End: 2}},
		"b.go:function:0": {Name: "Bar", FilePath: "b.go", LineRange: entity.LineRange{Start: 3, End: 4}},
	}
	candidates := BuildCandidates(results, locations, nil, nil, 0.3)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a.go:function:0", candidates[0].EntityID)
	assert.Equal(t, "Foo", candidates[0].Name)
	assert.Equal(t, "b.go:function:0", candidates[1].EntityID)
}
