// Package discovery walks a project root and produces the candidate file list the
// pipeline hands to the AST service.
//
// The walk itself does symlink-cycle tracking, early directory pruning, and
// relative-path pattern matching, using doublestar globs plus gitignore
// semantics (via sabhiram/go-gitignore). The filesystem is accessed through
// afero so tests can run against an in-memory FS.
package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/sibyllinesoft/valknut/internal/config"
	verrors "github.com/sibyllinesoft/valknut/internal/errors"
	"github.com/sibyllinesoft/valknut/internal/interner"
	"github.com/sibyllinesoft/valknut/internal/vlog"
	"go.uber.org/zap"
)

// File is one discovered source file, already matched to a language.
type File struct {
	Path         string // absolute path
	RelPath      string // slash-normalized, relative to the scan root
	Language     string
	Size         int64
}

// Walker discovers files under a root according to a Config's analysis/languages
// sections.
type Walker struct {
	fs  afero.Fs
	cfg *config.Config
}

// New creates a Walker backed by the OS filesystem.
func New(cfg *config.Config) *Walker {
	return &Walker{fs: afero.NewOsFs(), cfg: cfg}
}

// NewWithFs creates a Walker backed by an arbitrary afero.Fs, for tests.
func NewWithFs(cfg *config.Config, fsys afero.Fs) *Walker {
	return &Walker{fs: fsys, cfg: cfg}
}

// extensionIndex maps a file extension (with leading dot) to the language name that
// declares it, built once per walk from the enabled languages in config.
func (w *Walker) extensionIndex() map[string]string {
	idx := make(map[string]string)
	for name, lang := range w.cfg.Languages {
		if !lang.Enabled {
			continue
		}
		for _, ext := range lang.FileExtensions {
			idx[ext] = name
		}
	}
	return idx
}

// Discover walks root and returns every matching file, sorted by path for
// deterministic pipeline ordering.
func (w *Walker) Discover(root string) ([]File, error) {
	extIdx := w.extensionIndex()

	gi, giErr := loadGitignore(w.fs, root)
	if giErr != nil {
		vlog.L().Warn("failed to load .gitignore, continuing without it", zap.Error(giErr))
	}

	visitedDirs := make(map[string]bool)
	var out []File

	walkErr := afero.Walk(w.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if path != root {
				if gi != nil && gi.MatchesPath(rel) {
					return filepath.SkipDir
				}
				if w.matchesAny(w.cfg.Analysis.ExcludePatterns, rel+"/") {
					return filepath.SkipDir
				}
			}
			if realPath, ok := resolveSymlinkDir(w.fs, path); ok {
				if visitedDirs[realPath] {
					return filepath.SkipDir
				}
				visitedDirs[realPath] = true
			}
			return nil
		}

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if w.matchesAny(w.cfg.Analysis.ExcludePatterns, rel) {
			return nil
		}
		if len(w.cfg.Analysis.IncludePatterns) > 0 && !w.matchesAny(w.cfg.Analysis.IncludePatterns, rel) {
			return nil
		}

		ext := filepath.Ext(path)
		lang, known := extIdx[ext]
		if !known {
			return nil
		}
		if w.cfg.Analysis.MaxFileSizeBytes > 0 && info.Size() > w.cfg.Analysis.MaxFileSizeBytes {
			return nil
		}

		// Every discovered path is interned here, at its single point of origin,
		// so every later stage that keys a map on File.Path or File.RelPath
		// compares and stores the same canonical string.
		path = interner.Resolve(interner.Intern(path))
		rel = interner.Resolve(interner.Intern(rel))
		out = append(out, File{Path: path, RelPath: rel, Language: lang, Size: info.Size()})
		if w.cfg.Analysis.MaxFiles > 0 && len(out) >= w.cfg.Analysis.MaxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, verrors.IO(root, walkErr)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (w *Walker) matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func loadGitignore(fsys afero.Fs, root string) (*ignore.GitIgnore, error) {
	path := filepath.Join(root, ".gitignore")
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, nil // no .gitignore is not an error
	}
	lines := splitLines(string(data))
	return ignore.CompileIgnoreLines(lines...), nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

// resolveSymlinkDir is a no-op for afero filesystems that don't expose symlink
// resolution (MemMapFs); the OS filesystem path is handled by afero.OsFs which
// delegates Stat/Walk to the real filesystem, so cycles are broken by the
// visited-path check keyed on the literal path in that case.
func resolveSymlinkDir(fsys afero.Fs, path string) (string, bool) {
	if lr, ok := fsys.(afero.Lstater); ok {
		if info, _, err := lr.LstatIfPossible(path); err == nil && info.Mode()&fs.ModeSymlink != 0 {
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				return "", false
			}
			return real, true
		}
	}
	return path, true
}
