package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	// Keep the integration test fast and deterministic: no coverage reports
	// to discover, no clone corpus large enough to matter.
	cfg.Analysis.EnableCoverageAnalysis = false
	cfg.Coverage.AutoDiscover = false
	cfg.Dedupe.Enabled = false
	cfg.Cohesion.Enabled = false
	return cfg
}

func TestRunEmptyDirectoryReturnsEmptyResults(t *testing.T) {
	o, err := New(testConfig())
	require.NoError(t, err)

	dir := t.TempDir()
	res, err := o.Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Summary.FilesProcessed)
	assert.True(t, res.QualityGate.Passed)
}

func TestRunAnalyzesSinglePythonFile(t *testing.T) {
	o, err := New(testConfig())
	require.NoError(t, err)

	dir := t.TempDir()
	src := "def add(a, b):\n    if a > b:\n        return a\n    return b\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_ops.py"), []byte(src), 0o644))

	res, err := o.Run(context.Background(), []string{dir})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 1, res.Summary.FilesProcessed)
	assert.GreaterOrEqual(t, res.Summary.EntitiesAnalyzed, 1)
	assert.Contains(t, res.Summary.Languages, "python")
	assert.NotNil(t, res.HealthMetrics)
	assert.NotEmpty(t, res.CodeDictionary)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Performance.BatchSize = -1
	o, err := New(cfg)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), []string{t.TempDir()})
	assert.Error(t, err)
}
