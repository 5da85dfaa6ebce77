package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/entity"
)

func TestPriorityFromScoreIsMonotone(t *testing.T) {
	scores := []float64{0, 0.29, 0.3, 0.49, 0.5, 0.69, 0.7, 0.84, 0.85, 1.0}
	var priorities []Priority
	for _, s := range scores {
		priorities = append(priorities, PriorityFromScore(s))
	}
	for i := 1; i < len(priorities); i++ {
		assert.GreaterOrEqual(t, priorities[i], priorities[i-1])
	}
}

func TestNormalizeAlwaysInUnitInterval(t *testing.T) {
	values := []float64{1, 2, 3, 4, 100, -5, 0}
	for _, scheme := range []Scheme{SchemeZScore, SchemeMinMax, SchemeRobust, SchemeZScoreBayes, SchemeMinMaxBayes, SchemeRobustBayes} {
		out := Normalize(scheme, values, true, StatisticalParams{MinSampleSize: 5})
		for _, v := range out {
			assert.False(t, math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestNormalizeHandlesZeroVariance(t *testing.T) {
	out := Normalize(SchemeZScore, []float64{5, 5, 5}, true, StatisticalParams{})
	for _, v := range out {
		assert.Equal(t, 0.5, v)
	}
}

func TestNormalizeRespectsHigherIsWorse(t *testing.T) {
	values := []float64{0, 10}
	worse := Normalize(SchemeMinMax, values, true, StatisticalParams{})
	better := Normalize(SchemeMinMax, values, false, StatisticalParams{})

	assert.Greater(t, worse[1], worse[0])
	assert.Greater(t, better[0], better[1])
}

func TestScoreIsDeterministicAndSorted(t *testing.T) {
	v1 := entity.NewFeatureVector("b")
	v1.Set("cyclomatic", 20)
	v2 := entity.NewFeatureVector("a")
	v2.Set("cyclomatic", 2)

	registry := entity.NewRegistry()
	registry.Register(entity.FeatureDefinition{Name: "cyclomatic", HigherIsWorse: true})

	categoryOf := func(string) FeatureCategory { return CategoryComplexity }
	weights := CategoryWeights{Complexity: 1.0}
	params := StatisticalParams{ConfidenceLevel: 0.95, MinSampleSize: 2}

	results1 := Score([]*entity.FeatureVector{v1, v2}, registry, categoryOf, SchemeMinMax, weights, params)
	results2 := Score([]*entity.FeatureVector{v1, v2}, registry, categoryOf, SchemeMinMax, weights, params)

	require.Len(t, results1, 2)
	assert.Equal(t, "a", results1[0].EntityID)
	assert.Equal(t, "b", results1[1].EntityID)
	assert.Equal(t, results1, results2)
	assert.Greater(t, results1[1].OverallScore, results1[0].OverallScore)
}

func TestScoreFeatureContributionsAreSortedDescending(t *testing.T) {
	v := entity.NewFeatureVector("a")
	v.Set("cyclomatic", 5)
	v.Set("cognitive", 1)

	registry := entity.NewRegistry()
	registry.Register(entity.FeatureDefinition{Name: "cyclomatic", HigherIsWorse: true})
	registry.Register(entity.FeatureDefinition{Name: "cognitive", HigherIsWorse: true})

	results := Score([]*entity.FeatureVector{v}, registry, func(string) FeatureCategory { return CategoryComplexity },
		SchemeMinMax, CategoryWeights{Complexity: 1}, StatisticalParams{MinSampleSize: 1, ConfidenceLevel: 0.95})

	require.Len(t, results, 1)
	contribs := results[0].FeatureContributions
	for i := 1; i < len(contribs); i++ {
		assert.GreaterOrEqual(t, contribs[i-1].Contribution, contribs[i].Contribution)
	}
}
