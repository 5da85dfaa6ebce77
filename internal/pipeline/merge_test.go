package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults(files, entities int, score float64) *AnalysisResults {
	return &AnalysisResults{
		Summary: Summary{
			TotalFiles: files, TotalEntities: entities,
			AvgRefactoringScore: score, Languages: []string{"python"},
		},
		CodeDictionary: map[string]string{"CMPLX": "x"},
		HealthMetrics:  &HealthMetrics{OverallHealthScore: score * 100},
	}
}

func TestMergeWithNilIsIdentity(t *testing.T) {
	a := sampleResults(1, 2, 0.5)
	assert.Same(t, a, Merge(a, nil))
	assert.Same(t, a, Merge(nil, a))
}

func TestMergeAddsCounters(t *testing.T) {
	a := sampleResults(2, 10, 0.2)
	b := sampleResults(3, 5, 0.8)
	out := Merge(a, b)
	require.NotNil(t, out)
	assert.Equal(t, 5, out.Summary.TotalFiles)
	assert.Equal(t, 15, out.Summary.TotalEntities)
}

func TestMergeWeightedAverageByEntityCount(t *testing.T) {
	a := sampleResults(1, 10, 0.2)
	b := sampleResults(1, 30, 0.6)
	out := Merge(a, b)
	want := (0.2*10 + 0.6*30) / 40
	assert.InDelta(t, want, out.Summary.AvgRefactoringScore, 1e-9)
}

func TestMergeIsAssociative(t *testing.T) {
	a := sampleResults(1, 4, 0.1)
	b := sampleResults(2, 6, 0.4)
	c := sampleResults(3, 2, 0.9)

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))

	assert.InDelta(t, left.Summary.AvgRefactoringScore, right.Summary.AvgRefactoringScore, 1e-9)
	assert.Equal(t, left.Summary.TotalEntities, right.Summary.TotalEntities)
	assert.Equal(t, left.Summary.TotalFiles, right.Summary.TotalFiles)
}

func TestMergeUnionDedupsWarnings(t *testing.T) {
	a := sampleResults(1, 1, 0)
	a.Warnings = []string{"skip a", "skip b"}
	b := sampleResults(1, 1, 0)
	b.Warnings = []string{"skip b", "skip c"}
	out := Merge(a, b)
	assert.ElementsMatch(t, []string{"skip a", "skip b", "skip c"}, out.Warnings)
}

func TestMergeMaxPeakMemory(t *testing.T) {
	a := sampleResults(1, 1, 0)
	a.Statistics.MemoryStats.PeakMemoryBytes = 100
	b := sampleResults(1, 1, 0)
	b.Statistics.MemoryStats.PeakMemoryBytes = 250
	out := Merge(a, b)
	assert.Equal(t, uint64(250), out.Statistics.MemoryStats.PeakMemoryBytes)
}
