package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/entity"
	"github.com/sibyllinesoft/valknut/internal/langregistry"
)

func TestMaintainabilityIndexIsClamped(t *testing.T) {
	assert.Equal(t, 100.0, MaintainabilityIndex(0, 0, 1))
	assert.GreaterOrEqual(t, MaintainabilityIndex(100000, 500, 100000), 0.0)
}

func TestTechnicalDebtScoreRange(t *testing.T) {
	score := TechnicalDebtScore(20, 50, 100)
	assert.Equal(t, 100.0, score)

	score = TechnicalDebtScore(0, 0, 0)
	assert.Equal(t, 0.0, score)
}

func TestComputeHalsteadCountsOperatorsAndOperands(t *testing.T) {
	h := ComputeHalstead("x = a + b")
	assert.Greater(t, h.TotalOperators, 0)
	assert.Greater(t, h.TotalOperands, 0)
	assert.Equal(t, h.TotalOperators+h.TotalOperands, h.Length)
}

func TestIssuesThresholds(t *testing.T) {
	th := DefaultThresholds()
	m := Metrics{EntityID: "e1", Cyclomatic: 25}
	issues := Issues(m, th)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityHigh, issues[0].Severity)
}

func TestComputeForEntitySinglePythonFunction(t *testing.T) {
	reg, err := langregistry.NewDefault()
	require.NoError(t, err)
	a, ok := reg.Lookup(".py")
	require.True(t, ok)

	source := []byte("def hello():\n    pass\n")
	tree, err := a.ParseTree(source)
	require.NoError(t, err)
	defer tree.Close()

	ctx := &astsvc.Context{Tree: tree, Source: source, Path: "a.py"}
	counter := entity.NewIDCounter()
	entities, err := a.ExtractCodeEntities(source, "a.py", counter)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	m := ComputeForEntity(ctx, "python", entities[0])
	assert.Equal(t, 1, m.Cyclomatic)
	assert.Equal(t, 0, m.Cognitive)
	assert.GreaterOrEqual(t, m.MaintainabilityIndex, 90.0)
}

func TestSummarizeSortsByEntityID(t *testing.T) {
	s := Summarize("a.go", []Metrics{
		{EntityID: "a.go:function:2", Cyclomatic: 1},
		{EntityID: "a.go:function:1", Cyclomatic: 2},
	})
	require.Len(t, s.Entities, 2)
	assert.Equal(t, "a.go:function:1", s.Entities[0].EntityID)
	assert.Equal(t, 3, s.TotalCyclomatic)
}
