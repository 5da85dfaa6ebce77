package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/config"
	"github.com/sibyllinesoft/valknut/internal/coverage"
)

func TestCoverageFormatForGuessesByFilename(t *testing.T) {
	cases := map[string]coverage.ReportFormat{
		"lcov.info":          coverage.FormatLCOV,
		"coverage-final.json": coverage.FormatJSON,
		"cobertura.xml":       coverage.FormatCobertura,
		"jacoco.xml":          coverage.FormatJaCoCo,
		"clover.xml":          coverage.FormatClover,
	}
	for name, want := range cases {
		assert.Equal(t, want, coverageFormatFor(name), name)
	}
}

func TestDistinctBlockCountCountsControlFlowKinds(t *testing.T) {
	labels := []string{"module", "if_statement", "if_statement", "for_statement", "block"}
	assert.Equal(t, 2, distinctBlockCount(labels))
}

func TestDistinctBlockCountZeroWithNoControlFlow(t *testing.T) {
	assert.Equal(t, 0, distinctBlockCount([]string{"module", "identifier"}))
}

func TestDiscoverCoverageReportsHonorsExplicitCoverageFile(t *testing.T) {
	o := &Orchestrator{cfg: &config.Config{Coverage: config.Coverage{CoverageFile: "fixed.lcov"}}}
	paths, err := o.discoverCoverageReports(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed.lcov"}, paths)
}

func TestDiscoverCoverageReportsAutoDiscoversByPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lcov.info"), []byte("SF:a.py\nend_of_record\n"), 0o644))

	o := &Orchestrator{cfg: &config.Config{Coverage: config.Coverage{
		AutoDiscover: true,
		FilePatterns: []string{"*.info"},
	}}}
	paths, err := o.discoverCoverageReports([]string{dir})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "lcov.info"), paths[0])
}

func TestDiscoverCoverageReportsDisabledReturnsNothing(t *testing.T) {
	o := &Orchestrator{cfg: &config.Config{Coverage: config.Coverage{AutoDiscover: false}}}
	paths, err := o.discoverCoverageReports([]string{"."})
	require.NoError(t, err)
	assert.Empty(t, paths)
}
