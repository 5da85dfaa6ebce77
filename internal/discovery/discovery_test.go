package discovery

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/config"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.IncludePatterns = []string{"**/*"}
	cfg.Analysis.ExcludePatterns = []string{"**/node_modules/**"}
	return cfg
}

func TestDiscoverFindsKnownLanguageFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/proj/main.go", "package main")
	writeFile(t, fsys, "/proj/script.py", "print(1)")
	writeFile(t, fsys, "/proj/readme.md", "# hi")

	w := NewWithFs(testConfig(), fsys)
	files, err := w.Discover("/proj")
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Contains(t, rels, "main.go")
	assert.Contains(t, rels, "script.py")
	assert.NotContains(t, rels, "readme.md")
}

func TestDiscoverHonorsExcludePatterns(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/proj/node_modules/dep/index.js", "module.exports = {}")
	writeFile(t, fsys, "/proj/app.js", "console.log(1)")

	w := NewWithFs(testConfig(), fsys)
	files, err := w.Discover("/proj")
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Contains(t, rels, "app.js")
	assert.NotContains(t, rels, "node_modules/dep/index.js")
}

func TestDiscoverHonorsGitignore(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/proj/.gitignore", "build/\n*.generated.go\n")
	writeFile(t, fsys, "/proj/build/out.go", "package build")
	writeFile(t, fsys, "/proj/thing.generated.go", "package proj")
	writeFile(t, fsys, "/proj/thing.go", "package proj")

	w := NewWithFs(testConfig(), fsys)
	files, err := w.Discover("/proj")
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Contains(t, rels, "thing.go")
	assert.NotContains(t, rels, "thing.generated.go")
	assert.NotContains(t, rels, "build/out.go")
}

func TestDiscoverHonorsMaxFileSizeBytes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := testConfig()
	cfg.Analysis.MaxFileSizeBytes = 4
	writeFile(t, fsys, "/proj/big.go", "package main // this is long")
	writeFile(t, fsys, "/proj/ok.go", "pkg")

	w := NewWithFs(cfg, fsys)
	files, err := w.Discover("/proj")
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.NotContains(t, rels, "big.go")
}

func TestDiscoverResultsAreSortedAndDeterministic(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/proj/z.go", "package main")
	writeFile(t, fsys, "/proj/a.go", "package main")
	writeFile(t, fsys, "/proj/m.go", "package main")

	w := NewWithFs(testConfig(), fsys)
	files, err := w.Discover("/proj")
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.True(t, files[0].Path < files[1].Path)
	assert.True(t, files[1].Path < files[2].Path)
}

func TestDiscoverHonorsMaxFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := testConfig()
	cfg.Analysis.MaxFiles = 2
	writeFile(t, fsys, "/proj/a.go", "package main")
	writeFile(t, fsys, "/proj/b.go", "package main")
	writeFile(t, fsys, "/proj/c.go", "package main")

	w := NewWithFs(cfg, fsys)
	files, err := w.Discover("/proj")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
