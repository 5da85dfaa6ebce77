// Package coverage implements the coverage-gap detector: it
// parses coverage reports into per-file line coverage, merges uncovered lines
// into gaps, scores each gap by a weighted feature blend, and rolls gaps up
// into per-file CoveragePacks sorted by estimated payoff.
package coverage

import (
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/config"
)

// LineCoverage is one source line's hit count from a coverage report.
type LineCoverage struct {
	Line      int
	Hits      int
	IsCovered bool
}

// FileCoverage is the per-file line coverage extracted from one or more reports.
type FileCoverage struct {
	Path  string
	Lines []LineCoverage
}

// UncoveredSpan is a maximal run of consecutive uncovered lines.
type UncoveredSpan struct {
	Path  string
	Start int
	End   int
}

func (s UncoveredSpan) lineCount() int { return s.End - s.Start + 1 }

// SymbolKind classifies a symbol found inside a coverage gap.
type SymbolKind string

const (
	SymbolFunction SymbolKind = "function"
	SymbolClass    SymbolKind = "class"
	SymbolModule   SymbolKind = "module"
)

// GapSymbol is a function/class/module declared inside a coverage gap.
type GapSymbol struct {
	Kind      SymbolKind
	Name      string
	Signature string
	LineStart int
	LineEnd   int
}

// GapFeatures is the feature block computed for one coverage gap (step 4).
type GapFeatures struct {
	GapLOC                   int
	CyclomaticInGap          float64
	CognitiveInGap           float64
	FanInGap                 int
	ExportsTouched           bool
	DependencyCentralityFile float64
	InterfaceSurface         int
	DocstringOrCommentPresent bool
	ExceptionDensityInGap    float64
}

// SnippetPreview is the human-readable context shown alongside a gap.
type SnippetPreview struct {
	Pre     []string
	Post    []string
	Head    []string
	Tail    []string
	Imports []string
}

// CoverageGap is one scored, source-located coverage gap.
type CoverageGap struct {
	Path     string
	Language string
	Span     UncoveredSpan
	FileLOC  int
	Features GapFeatures
	Symbols  []GapSymbol
	Preview  SnippetPreview
	Score    float64
}

// FileInfo summarizes a file's coverage before/after the gaps would be filled.
type FileInfo struct {
	LOC                  int
	CoverageBefore       float64
	CoverageAfterIfFilled float64
}

// Value is the estimated payoff of closing a file's gaps.
type Value struct {
	FileCovGain    float64
	RepoCovGainEst float64
}

// Effort is the estimated cost of closing a file's gaps.
type Effort struct {
	TestsToWriteEst int
	MocksEst        int
}

// CoveragePack is the per-file rollup emitted by BuildPacks (step 6).
type CoveragePack struct {
	Kind   string
	PackID string
	Path   string
	Info   FileInfo
	Gaps   []CoverageGap
	Value  Value
	Effort Effort
}

// SourceReader resolves a file path to its current content and parsed AST,
// so BuildPacks can be driven by the astsvc cache without importing a
// filesystem dependency directly.
type SourceReader interface {
	ReadFile(path string) ([]byte, error)
	Language(path string) (string, bool)
}

// Detector builds CoveragePacks from parsed coverage reports.
type Detector struct {
	cfg    config.Coverage
	ast    *astsvc.Service
	reader SourceReader
}

// New builds a Detector. ast and reader may be nil for tests that only
// exercise parsing and span coalescing.
func New(cfg config.Coverage, ast *astsvc.Service, reader SourceReader) *Detector {
	return &Detector{cfg: cfg, ast: ast, reader: reader}
}

// BuildPacks runs the full pipeline over a set of already-parsed FileCoverage
// records, one per file the union of all reports touched.
func (d *Detector) BuildPacks(files []FileCoverage) ([]CoveragePack, error) {
	var packs []CoveragePack
	for _, fc := range files {
		spans := linesToSpans(fc.Lines, d.cfg.MinGapLOC)
		spans = coalesceSpans(spans)

		language := detectLanguageByExt(fc.Path)
		if d.reader != nil {
			if lang, ok := d.reader.Language(fc.Path); ok {
				language = lang
			}
		}
		spans = chunkSpansByLanguage(fc.Path, language, spans, d.readFileLines(fc.Path))

		loc := d.fileLOC(fc.Path, fc.Lines)
		uncovered := 0
		for _, s := range spans {
			uncovered += s.lineCount()
		}

		gaps := d.buildGaps(fc.Path, language, spans, loc)
		if len(gaps) == 0 {
			continue
		}
		d.scoreGaps(gaps)

		coverageBefore := 1.0
		if loc > 0 {
			coverageBefore = 1.0 - float64(uncovered)/float64(loc)
		}
		coverageAfter := coverageBefore
		if loc > 0 {
			coverageAfter = math.Min(1.0, coverageBefore+float64(uncovered)/float64(loc))
		}
		fileCovGain := math.Max(0, coverageAfter-coverageBefore)
		repoCovGainEst := fileCovGain * (float64(loc) / 10000.0)

		testsToWrite := len(gaps)
		if est := uncovered / 5; est > testsToWrite {
			testsToWrite = est
		}
		if testsToWrite < 1 {
			testsToWrite = 1
		}
		mocksEst := 0
		for _, g := range gaps {
			for _, s := range g.Symbols {
				if s.Kind == SymbolClass || s.Kind == SymbolModule {
					mocksEst++
				}
			}
		}
		if mocksEst > 5 {
			mocksEst = 5
		}

		packs = append(packs, CoveragePack{
			Kind:   "coverage",
			PackID: "cov:" + fc.Path,
			Path:   fc.Path,
			Info: FileInfo{
				LOC:                  loc,
				CoverageBefore:       coverageBefore,
				CoverageAfterIfFilled: coverageAfter,
			},
			Gaps: gaps,
			Value: Value{
				FileCovGain:    fileCovGain,
				RepoCovGainEst: repoCovGainEst,
			},
			Effort: Effort{TestsToWriteEst: testsToWrite, MocksEst: mocksEst},
		})
	}

	sort.SliceStable(packs, func(i, j int) bool {
		pi := packs[i].Value.RepoCovGainEst / float64(packs[i].Effort.TestsToWriteEst+1)
		pj := packs[j].Value.RepoCovGainEst / float64(packs[j].Effort.TestsToWriteEst+1)
		return pi > pj
	})
	return packs, nil
}

func (d *Detector) readFileLines(path string) []string {
	if d.reader == nil {
		return nil
	}
	content, err := d.reader.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(string(content), "\n")
}

func (d *Detector) fileLOC(path string, lines []LineCoverage) int {
	if d.reader != nil {
		if content, err := d.reader.ReadFile(path); err == nil {
			return countLines(string(content))
		}
	}
	maxLine := 0
	for _, l := range lines {
		if l.Line > maxLine {
			maxLine = l.Line
		}
	}
	return maxLine
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Split(strings.TrimRight(content, "\n"), "\n"))
}

// linesToSpans merges consecutive uncovered line numbers into maximal spans
// of at least minGapLOC lines (step 2).
func linesToSpans(lines []LineCoverage, minGapLOC int) []UncoveredSpan {
	if minGapLOC < 1 {
		minGapLOC = 1
	}
	sorted := append([]LineCoverage(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Line < sorted[j].Line })

	var spans []UncoveredSpan
	var current *UncoveredSpan
	for _, l := range sorted {
		if l.IsCovered {
			if current != nil {
				if current.lineCount() >= minGapLOC {
					spans = append(spans, *current)
				}
				current = nil
			}
			continue
		}
		if current != nil && l.Line == current.End+1 {
			current.End = l.Line
			continue
		}
		if current != nil && current.lineCount() >= minGapLOC {
			spans = append(spans, *current)
		}
		current = &UncoveredSpan{Start: l.Line, End: l.Line}
	}
	if current != nil && current.lineCount() >= minGapLOC {
		spans = append(spans, *current)
	}
	return spans
}

// coalesceSpans merges spans separated by at most 2 lines (step 3).
func coalesceSpans(spans []UncoveredSpan) []UncoveredSpan {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]UncoveredSpan(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []UncoveredSpan{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End+3 {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

var pythonBoundaryPattern = regexp.MustCompile(`^\s*(def |class )`)

// chunkSpansByLanguage splits a span at language-aware boundaries, currently
// Python def/class lines, mirroring the original implementation's one
// concrete chunker (step 3 names Python as the example).
func chunkSpansByLanguage(path, language string, spans []UncoveredSpan, lines []string) []UncoveredSpan {
	if language != "python" || len(lines) == 0 {
		return spans
	}
	var chunked []UncoveredSpan
	for _, span := range spans {
		boundaries := map[int]bool{span.Start: true, span.End + 1: true}
		for lineNo := span.Start; lineNo <= span.End; lineNo++ {
			if lineNo-1 < 0 || lineNo-1 >= len(lines) {
				continue
			}
			if pythonBoundaryPattern.MatchString(lines[lineNo-1]) {
				boundaries[lineNo] = true
			}
		}
		sortedBoundaries := make([]int, 0, len(boundaries))
		for b := range boundaries {
			sortedBoundaries = append(sortedBoundaries, b)
		}
		sort.Ints(sortedBoundaries)

		for i := 0; i+1 < len(sortedBoundaries); i++ {
			start := sortedBoundaries[i]
			end := sortedBoundaries[i+1] - 1
			if start <= end {
				chunked = append(chunked, UncoveredSpan{Path: path, Start: start, End: end})
			}
		}
	}
	return chunked
}

func extractLines(lines []string, start, end int) []string {
	if start <= 0 || start > end {
		return nil
	}
	var out []string
	for idx, line := range lines {
		lineNo := idx + 1
		if lineNo < start {
			continue
		}
		if lineNo > end {
			break
		}
		out = append(out, line)
	}
	return out
}

var importLinePatterns = map[string]*regexp.Regexp{
	"python":     regexp.MustCompile(`^\s*(import |from )`),
	"javascript": regexp.MustCompile(`^\s*(import |const .*require\()`),
	"typescript": regexp.MustCompile(`^\s*(import |const .*require\()`),
	"rust":       regexp.MustCompile(`^\s*use `),
}

func extractImports(lines []string, language string) []string {
	pat, ok := importLinePatterns[language]
	if !ok {
		return nil
	}
	var imports []string
	limit := len(lines)
	if limit > 200 {
		limit = 200
	}
	for _, line := range lines[:limit] {
		trimmed := strings.TrimSpace(line)
		if pat.MatchString(line) {
			imports = append(imports, trimmed)
		}
	}
	return imports
}

func estimateFileCentrality(path string) float64 {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "lib.rs") || strings.Contains(p, "main.rs") ||
		strings.Contains(p, "__init__.py") || strings.Contains(p, "index."):
		return 0.9
	case strings.Contains(p, "core") || strings.Contains(p, "base") ||
		strings.Contains(p, "common") || strings.Contains(p, "util"):
		return 0.7
	case strings.Contains(p, "test") || strings.Contains(p, "example"):
		return 0.2
	default:
		return 0.5
	}
}

func normalizeSizeScore(gapLOC int) float64 {
	return 1.0 - math.Exp(-float64(gapLOC)/20.0)
}

func normalizeComplexityScore(complexity float64) float64 {
	return 1.0 - math.Exp(-complexity/10.0)
}

func normalizeFanInScore(fanIn int) float64 {
	x := float64(fanIn)
	v := x / (x + 5.0)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func detectLanguageByExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".rs":
		return "rust"
	case ".go":
		return "go"
	case ".java":
		return "java"
	case ".cpp", ".cc", ".cxx":
		return "cpp"
	case ".c", ".h", ".hpp":
		return "c"
	default:
		return "unknown"
	}
}
