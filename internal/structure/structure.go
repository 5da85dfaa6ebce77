package structure

import (
	"math/rand"
	"path"
	"sort"

	"github.com/sibyllinesoft/valknut/internal/config"
	"github.com/sibyllinesoft/valknut/internal/langregistry"
)

// Issue codes for the structure detector's findings, resolving the
// "issues count" Open Question leaves unfixed: one STRUCT001 per
// detected file-level cycle and one STRUCT002 per detected package-level
// cycle. StructureQualityScore's cyclePenalty term is fed by the number of
// files in any file-level cycle, not by the issue count.
const (
	IssueFileCycle    = "STRUCT001"
	IssuePackageCycle = "STRUCT002"
)

// SourceReader abstracts file content and language lookup, the same
// boundary internal/coverage and internal/cohesion use, so the detector
// doesn't depend on a concrete filesystem or indexing layer.
type SourceReader interface {
	ReadFile(path string) ([]byte, error)
	Language(path string) (string, bool)
}

// NodeResult is one file or package's position in the import graph.
type NodeResult struct {
	Path        string
	FanIn       int
	FanOut      int
	Instability float64
	Betweenness float64
	Closeness   float64
}

// Issue is one structural finding (currently: a detected cycle).
type Issue struct {
	Code     string
	Severity string
	Message  string
	Paths    []string
}

// Results is the structure detector's output.
type Results struct {
	Enabled bool

	FilesAnalyzed int
	Nodes         map[string]NodeResult
	PackageNodes  map[string]NodeResult

	Cycles        [][]string
	PackageCycles [][]string

	Issues                []Issue
	StructureQualityScore float64
}

func disabledResults() Results {
	return Results{Enabled: false, StructureQualityScore: 100}
}

// Detector runs the structure-analysis pipeline over a set of files.
type Detector struct {
	cfg      config.Graph
	registry *langregistry.Registry
	reader   SourceReader
	rng      *rand.Rand
}

// New constructs a Detector. reader and registry may be nil only when
// cfg.EnableCycleDetection, cfg.EnableBetweenness, and cfg.EnableCloseness
// are all false and AnalyzeFiles is never expected to do real work (the
// disabled-pipeline path tests exercise).
func New(cfg config.Graph, registry *langregistry.Registry, reader SourceReader) (*Detector, error) {
	return &Detector{
		cfg:      cfg,
		registry: registry,
		reader:   reader,
		rng:      rand.New(rand.NewSource(1)),
	}, nil
}

func isEnabled(cfg config.Graph) bool {
	return cfg.EnableCycleDetection || cfg.EnableBetweenness || cfg.EnableCloseness
}

// AnalyzeFiles builds the import graph over paths and computes cycles,
// fan-in/fan-out, centrality, and the rolled-up structure quality score.
func (d *Detector) AnalyzeFiles(paths []string) (Results, error) {
	if d == nil || !isEnabled(d.cfg) {
		return disabledResults(), nil
	}
	if len(paths) == 0 {
		return Results{Enabled: true, Nodes: map[string]NodeResult{}, PackageNodes: map[string]NodeResult{}, StructureQualityScore: 100}, nil
	}

	graph := NewGraph()
	for _, p := range paths {
		graph.AddFile(p)
	}

	resolver := NewResolver(paths)
	for _, p := range paths {
		language, ok := d.reader.Language(p)
		if !ok {
			continue
		}
		adapter, ok := d.registry.Lookup(extOf(p))
		if !ok {
			continue
		}
		source, err := d.reader.ReadFile(p)
		if err != nil {
			continue
		}
		imports, err := adapter.ExtractImports(source)
		if err != nil {
			continue
		}
		for _, imp := range imports {
			for _, spec := range moduleSpecifiers(language, imp.Source) {
				if target, ok := resolver.Resolve(p, language, spec); ok {
					graph.AddEdge(p, target)
				}
			}
		}
	}

	pkgGraph := graph.PackageGraph(path.Dir)

	var cycles, pkgCycles [][]string
	var issues []Issue
	if d.cfg.EnableCycleDetection {
		cycles = FindCycles(graph)
		pkgCycles = FindCycles(pkgGraph)
		for _, c := range cycles {
			issues = append(issues, Issue{Code: IssueFileCycle, Severity: "high", Message: "import cycle detected", Paths: c})
		}
		for _, c := range pkgCycles {
			issues = append(issues, Issue{Code: IssuePackageCycle, Severity: "critical", Message: "package import cycle detected", Paths: c})
		}
	}

	var betweenness, closeness map[string]float64
	if d.cfg.EnableBetweenness {
		betweenness = BetweennessCentrality(graph, d.cfg.UseApproximation, d.cfg.ApproximationSampleRate, d.cfg.MaxExactSize, d.rng)
	}
	if d.cfg.EnableCloseness {
		closeness = ClosenessCentrality(graph, d.cfg.UseApproximation, d.cfg.ApproximationSampleRate, d.cfg.MaxExactSize, d.rng)
	}

	nodes := buildNodeResults(graph, betweenness, closeness)
	pkgNodes := buildNodeResults(pkgGraph, nil, nil)

	cycleNodeSet := make(map[string]bool)
	for _, c := range cycles {
		for _, p := range c {
			cycleNodeSet[p] = true
		}
	}
	instabilities := make([]float64, 0, len(nodes))
	for _, n := range nodes {
		instabilities = append(instabilities, n.Instability)
	}
	mean, stdev := MeanAndStdev(instabilities)
	quality := StructureQualityScore(QualityInputs{
		NodeCount:        len(nodes),
		CycleNodeCount:   len(cycleNodeSet),
		MeanInstability:  mean,
		InstabilityStdev: stdev,
	})

	return Results{
		Enabled:               true,
		FilesAnalyzed:         len(paths),
		Nodes:                 nodes,
		PackageNodes:          pkgNodes,
		Cycles:                cycles,
		PackageCycles:         pkgCycles,
		Issues:                issues,
		StructureQualityScore: quality,
	}, nil
}

func buildNodeResults(g *Graph, betweenness, closeness map[string]float64) map[string]NodeResult {
	out := make(map[string]NodeResult, g.Size())
	for _, p := range g.Paths() {
		fanIn := g.FanIn(p)
		fanOut := g.FanOut(p)
		nr := NodeResult{
			Path:        p,
			FanIn:       fanIn,
			FanOut:      fanOut,
			Instability: Instability(fanIn, fanOut),
		}
		if betweenness != nil {
			nr.Betweenness = betweenness[p]
		}
		if closeness != nil {
			nr.Closeness = closeness[p]
		}
		out[p] = nr
	}
	return out
}

func extOf(p string) string {
	ext := path.Ext(p)
	return ext
}

// sortedPaths returns m's keys sorted, a small helper mirroring the pattern used
// throughout internal/cohesion and internal/coverage for deterministic
// map-key iteration.
func sortedPaths(m map[string]NodeResult) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
