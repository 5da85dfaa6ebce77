package coverage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/config"
)

func TestParseLCOVBasic(t *testing.T) {
	input := "SF:a.py\nDA:1,1\nDA:2,0\nDA:3,0\nend_of_record\n"
	files, err := ParseReport(FormatLCOV, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.py", files[0].Path)
	require.Len(t, files[0].Lines, 3)
	assert.False(t, files[0].Lines[1].IsCovered)
}

func TestParseJSONBasic(t *testing.T) {
	input := `{"files": {"a.py": {"1": 2, "2": 0}}}`
	files, err := ParseReport(FormatJSON, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.py", files[0].Path)
}

func TestParseCoberturaBasic(t *testing.T) {
	input := `<coverage><packages><package><classes><class filename="a.py"><lines><line number="1" hits="1"/><line number="2" hits="0"/></lines></class></classes></package></packages></coverage>`
	files, err := ParseReport(FormatCobertura, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, files[0].Lines, 2)
}

func TestLinesToSpansMergesConsecutiveUncovered(t *testing.T) {
	lines := []LineCoverage{
		{Line: 1, Hits: 1, IsCovered: true},
		{Line: 2, Hits: 0, IsCovered: false},
		{Line: 3, Hits: 0, IsCovered: false},
		{Line: 4, Hits: 0, IsCovered: false},
		{Line: 5, Hits: 1, IsCovered: true},
	}
	spans := linesToSpans(lines, 2)
	require.Len(t, spans, 1)
	assert.Equal(t, 2, spans[0].Start)
	assert.Equal(t, 4, spans[0].End)
}

func TestLinesToSpansDropsSpansBelowMinGapLOC(t *testing.T) {
	lines := []LineCoverage{
		{Line: 1, Hits: 0, IsCovered: false},
		{Line: 2, Hits: 1, IsCovered: true},
	}
	spans := linesToSpans(lines, 2)
	assert.Empty(t, spans)
}

func TestCoalesceSpansMergesNearbySpans(t *testing.T) {
	spans := []UncoveredSpan{{Start: 1, End: 3}, {Start: 5, End: 7}}
	merged := coalesceSpans(spans)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, merged[0].Start)
	assert.Equal(t, 7, merged[0].End)
}

func TestCoalesceSpansKeepsFarSpansSeparate(t *testing.T) {
	spans := []UncoveredSpan{{Start: 1, End: 3}, {Start: 10, End: 12}}
	merged := coalesceSpans(spans)
	assert.Len(t, merged, 2)
}

func TestNormalizeScoresAreMonotoneAndBounded(t *testing.T) {
	assert.Less(t, normalizeSizeScore(1), normalizeSizeScore(100))
	assert.GreaterOrEqual(t, normalizeSizeScore(1000), 0.0)
	assert.LessOrEqual(t, normalizeSizeScore(1000), 1.0)
	assert.Equal(t, 0.0, normalizeFanInScore(0))
	assert.Less(t, normalizeFanInScore(0), normalizeFanInScore(50))
}

func TestEstimateFileCentralityHeuristics(t *testing.T) {
	assert.Equal(t, 0.9, estimateFileCentrality("src/lib.rs"))
	assert.Equal(t, 0.7, estimateFileCentrality("pkg/core/util.go"))
	assert.Equal(t, 0.2, estimateFileCentrality("pkg/test/a_test.go"))
	assert.Equal(t, 0.5, estimateFileCentrality("pkg/widgets/render.go"))
}

type fakeReader struct {
	content  map[string]string
	language map[string]string
}

func (f *fakeReader) ReadFile(path string) ([]byte, error) {
	return []byte(f.content[path]), nil
}

func (f *fakeReader) Language(path string) (string, bool) {
	lang, ok := f.language[path]
	return lang, ok
}

func TestBuildPacksProducesScoredGapSortedByPayoff(t *testing.T) {
	source := "def hello():\n    pass\n\n\ndef world():\n    x = 1\n    y = 2\n    return x + y\n"
	reader := &fakeReader{
		content:  map[string]string{"a.py": source},
		language: map[string]string{"a.py": "python"},
	}
	det := New(config.Coverage{
		MinGapLOC:           1,
		SnippetContextLines: 1,
		LongGapHeadTail:     4,
		Weights: config.CoverageWeights{
			Size: 0.3, Complexity: 0.25, FanIn: 0.15, Exports: 0.15, Centrality: 0.1, Docs: 0.05,
		},
	}, nil, reader)

	files := []FileCoverage{{
		Path: "a.py",
		Lines: []LineCoverage{
			{Line: 1, Hits: 1, IsCovered: true},
			{Line: 2, Hits: 1, IsCovered: true},
			{Line: 5, Hits: 0, IsCovered: false},
			{Line: 6, Hits: 0, IsCovered: false},
			{Line: 7, Hits: 0, IsCovered: false},
			{Line: 8, Hits: 0, IsCovered: false},
		},
	}}

	packs, err := det.BuildPacks(files)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	pack := packs[0]
	assert.Equal(t, "cov:a.py", pack.PackID)
	require.NotEmpty(t, pack.Gaps)
	assert.GreaterOrEqual(t, pack.Gaps[0].Score, 0.0)
	assert.LessOrEqual(t, pack.Gaps[0].Score, 1.0)
	assert.GreaterOrEqual(t, pack.Effort.TestsToWriteEst, 1)
}
