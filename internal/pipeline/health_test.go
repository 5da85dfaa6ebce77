package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/structure"
)

func TestComputeHealthEmptyMetricsIsPerfect(t *testing.T) {
	h := computeHealth(nil, structure.Results{StructureQualityScore: 100}, cohesion.Results{}, complexity.DefaultThresholds())
	require.NotNil(t, h)
	assert.Equal(t, 100.0, h.OverallHealthScore)
	assert.Equal(t, 100.0, h.MaintainabilityScore)
}

func TestComputeHealthAppliesFormula(t *testing.T) {
	metrics := []complexity.Metrics{
		{MaintainabilityIndex: 80, TechnicalDebtScore: 10, Cyclomatic: 6},
	}
	th := complexity.DefaultThresholds()
	structureRes := structure.Results{StructureQualityScore: 90}
	h := computeHealth(metrics, structureRes, cohesion.Results{}, th)

	complexityScore := clampPct(6.0 / th.VeryHigh * 100)
	want := 0.28*80 + 0.25*90 + 0.18*(100-complexityScore) + 0.19*(100-10) + 0.10*100
	assert.InDelta(t, want, h.OverallHealthScore, 1e-9)
}

func TestDocHealthScoreNoIssuesIsPerfect(t *testing.T) {
	assert.Equal(t, 100.0, docHealthScore(cohesion.Results{}))
}

func TestDocHealthScoreAveragesDocIssueSeverity(t *testing.T) {
	res := cohesion.Results{Issues: []cohesion.Issue{
		{Code: cohesion.IssueDocMismatch, Severity: 0.4},
		{Code: cohesion.IssueDocTooShort, Severity: 0.2},
		{Code: "OTHER", Severity: 1.0},
	}}
	assert.InDelta(t, 100-30, docHealthScore(res), 1e-9)
}

func TestClampPct(t *testing.T) {
	assert.Equal(t, 0.0, clampPct(-5))
	assert.Equal(t, 100.0, clampPct(150))
	assert.Equal(t, 42.0, clampPct(42))
}

func TestEvaluateQualityGatesPassesWithDefaults(t *testing.T) {
	h := HealthMetrics{MaintainabilityScore: 50, ComplexityScore: 50, TechnicalDebtRatio: 0.2, DocHealthScore: 50}
	gate := EvaluateQualityGates(h, DefaultQualityGates(), nil)
	assert.True(t, gate.Passed)
	assert.Empty(t, gate.Violations)
}

func TestEvaluateQualityGatesReportsMaintainabilityViolation(t *testing.T) {
	h := HealthMetrics{MaintainabilityScore: 40, ComplexityScore: 10, TechnicalDebtRatio: 0, DocHealthScore: 100}
	gates := QualityGates{MinMaintainability: 60, MaxComplexity: 100, MaxTechnicalDebtRatio: 1, MinDocHealth: 0, MaxCriticalIssues: 1 << 30, MaxHighPriorityIssues: 1 << 30}
	gate := EvaluateQualityGates(h, gates, nil)
	require.False(t, gate.Passed)
	require.Len(t, gate.Violations, 1)
	assert.Equal(t, "Minimum maintainability score", gate.Violations[0].Rule)
	assert.Equal(t, "high", gate.Violations[0].Severity)
}

func TestEvaluateQualityGatesCountsCriticalIssues(t *testing.T) {
	h := HealthMetrics{MaintainabilityScore: 100, ComplexityScore: 0, TechnicalDebtRatio: 0, DocHealthScore: 100}
	gates := DefaultQualityGates()
	gates.MaxCriticalIssues = 0
	issues := []refactor.Issue{{Severity: 0.9}}
	gate := EvaluateQualityGates(h, gates, issues)
	require.False(t, gate.Passed)
	assert.Equal(t, "critical", gate.Violations[0].Severity)
}
