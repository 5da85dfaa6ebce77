package structure

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/config"
	"github.com/sibyllinesoft/valknut/internal/langregistry"
)

func TestModuleSpecifiersGoImportBlock(t *testing.T) {
	raw := "import (\n\t\"fmt\"\n\t\"github.com/acme/widgets/pkg/sub\"\n)"
	specs := moduleSpecifiers("go", raw)
	assert.Contains(t, specs, "fmt")
	assert.Contains(t, specs, "github.com/acme/widgets/pkg/sub")
}

func TestModuleSpecifiersPythonFromImport(t *testing.T) {
	specs := moduleSpecifiers("python", "from pkg.sub import helper")
	assert.Equal(t, "pkg.sub", specs[0])
	assert.Contains(t, specs, "pkg.sub.helper")
}

func TestModuleSpecifiersPythonPlainImport(t *testing.T) {
	specs := moduleSpecifiers("python", "import pkg.sub, os")
	require.Len(t, specs, 2)
	assert.Equal(t, "pkg.sub", specs[0])
}

func TestResolverResolvesRelativeJSImport(t *testing.T) {
	r := NewResolver([]string{"src/a.ts", "src/util/helpers.ts"})
	resolved, ok := r.Resolve("src/a.ts", "typescript", "./util/helpers")
	require.True(t, ok)
	assert.Equal(t, "src/util/helpers.ts", resolved)
}

func TestResolverResolvesPythonPackageImport(t *testing.T) {
	r := NewResolver([]string{"pkg/sub/mod.py", "pkg/sub/__init__.py"})
	resolved, ok := r.Resolve("pkg/main.py", "python", "pkg.sub.mod")
	require.True(t, ok)
	assert.Equal(t, "pkg/sub/mod.py", resolved)
}

func TestResolverDropsUnresolvableExternalImport(t *testing.T) {
	r := NewResolver([]string{"a.py"})
	_, ok := r.Resolve("a.py", "python", "numpy")
	assert.False(t, ok)
}

func TestGraphFanInFanOut(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("c", "b")
	assert.Equal(t, 1, g.FanOut("a"))
	assert.Equal(t, 2, g.FanIn("b"))
	assert.Equal(t, 0, g.FanOut("b"))
}

func TestGraphAddEdgeIgnoresSelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "a")
	assert.Equal(t, 0, g.FanOut("a"))
}

func TestFindCyclesDetectsSimpleCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	g.AddFile("d")

	cycles := FindCycles(g)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0])
}

func TestFindCyclesAcyclicGraphHasNone(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	assert.Empty(t, FindCycles(g))
}

func TestInstabilityExtremes(t *testing.T) {
	assert.Equal(t, 0.0, Instability(0, 0))
	assert.Equal(t, 0.0, Instability(5, 0))
	assert.Equal(t, 1.0, Instability(0, 5))
	assert.Equal(t, 0.5, Instability(3, 3))
}

func TestStructureQualityScorePenalizesCycles(t *testing.T) {
	clean := StructureQualityScore(QualityInputs{NodeCount: 10, CycleNodeCount: 0, MeanInstability: 0.5})
	cyclic := StructureQualityScore(QualityInputs{NodeCount: 10, CycleNodeCount: 10, MeanInstability: 0.5})
	assert.Greater(t, clean, cyclic)
	assert.Equal(t, 100.0, StructureQualityScore(QualityInputs{NodeCount: 0}))
}

func TestBetweennessCentralityIsHighForBridgeNode(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "bridge")
	g.AddEdge("bridge", "c")
	rng := rand.New(rand.NewSource(1))
	bc := BetweennessCentrality(g, false, 1.0, 1000, rng)
	assert.Greater(t, bc["bridge"], bc["a"])
	assert.Greater(t, bc["bridge"], bc["c"])
}

func TestClosenessCentralityIsZeroForIsolatedNode(t *testing.T) {
	g := NewGraph()
	g.AddFile("isolated")
	rng := rand.New(rand.NewSource(1))
	cc := ClosenessCentrality(g, false, 1.0, 1000, rng)
	assert.Equal(t, 0.0, cc["isolated"])
}

func TestPackageGraphCollapsesFilesByDirectory(t *testing.T) {
	g := NewGraph()
	g.AddEdge("pkg/a/x.go", "pkg/b/y.go")
	pg := g.PackageGraph(func(p string) string {
		// mimic path.Dir without importing it here to keep the test obvious
		for i := len(p) - 1; i >= 0; i-- {
			if p[i] == '/' {
				return p[:i]
			}
		}
		return "."
	})
	assert.Equal(t, 1, pg.FanOut("pkg/a"))
	assert.Equal(t, 1, pg.FanIn("pkg/b"))
}

type fakeStructureReader struct {
	content  map[string]string
	language map[string]string
}

func (f *fakeStructureReader) ReadFile(path string) ([]byte, error) {
	return []byte(f.content[path]), nil
}

func (f *fakeStructureReader) Language(path string) (string, bool) {
	lang, ok := f.language[path]
	return lang, ok
}

func TestAnalyzeFilesDisabledReturnsDefaultResults(t *testing.T) {
	det, err := New(config.Graph{}, nil, nil)
	require.NoError(t, err)
	results, err := det.AnalyzeFiles([]string{"a.py"})
	require.NoError(t, err)
	assert.False(t, results.Enabled)
	assert.Equal(t, 100.0, results.StructureQualityScore)
}

func TestAnalyzeFilesDetectsPythonImportCycle(t *testing.T) {
	reg, err := langregistry.NewDefault()
	require.NoError(t, err)

	reader := &fakeStructureReader{
		content: map[string]string{
			"pkg/a.py": "from pkg import b\n\ndef f():\n    return b.g()\n",
			"pkg/b.py": "from pkg import a\n\ndef g():\n    return a.f()\n",
		},
		language: map[string]string{"pkg/a.py": "python", "pkg/b.py": "python"},
	}

	cfg := config.Graph{EnableCycleDetection: true, EnableBetweenness: true, EnableCloseness: true, MaxExactSize: 1000, UseApproximation: false}
	det, err := New(cfg, reg, reader)
	require.NoError(t, err)

	results, err := det.AnalyzeFiles([]string{"pkg/a.py", "pkg/b.py"})
	require.NoError(t, err)
	require.True(t, results.Enabled)
	require.Len(t, results.Cycles, 1)
	assert.ElementsMatch(t, []string{"pkg/a.py", "pkg/b.py"}, results.Cycles[0])
	assert.NotEmpty(t, results.Issues)
	assert.Less(t, results.StructureQualityScore, 100.0)
}
