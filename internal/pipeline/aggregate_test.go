package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/scoring"
)

func TestEmptyResultsIsAllPassingAndZero(t *testing.T) {
	res := emptyResults()
	assert.True(t, res.QualityGate.Passed)
	assert.Equal(t, 0, res.Summary.FilesProcessed)
	assert.Equal(t, 100.0, res.HealthMetrics.OverallHealthScore)
}

func candidate(id string, priority scoring.Priority, score float64) refactor.Candidate {
	return refactor.Candidate{ScoringResult: scoring.ScoringResult{EntityID: id, Priority: priority, OverallScore: score}}
}

func TestSortCandidatesOrdersByPriorityThenScoreThenID(t *testing.T) {
	candidates := []refactor.Candidate{
		candidate("b", scoring.PriorityHigh, 0.5),
		candidate("a", scoring.PriorityCritical, 0.1),
		candidate("c", scoring.PriorityHigh, 0.9),
	}
	sortCandidates(candidates)
	require.Len(t, candidates, 3)
	assert.Equal(t, "a", candidates[0].EntityID)
	assert.Equal(t, "c", candidates[1].EntityID)
	assert.Equal(t, "b", candidates[2].EntityID)
}

func TestBuildCodeDictionaryCoversRefactoringTypes(t *testing.T) {
	dict := buildCodeDictionary()
	for _, code := range []string{refactor.ExtractMethod, refactor.ReduceComplexity, refactor.AddTest} {
		_, ok := dict[code]
		assert.True(t, ok, code)
	}
}
