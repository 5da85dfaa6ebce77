package structure

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// quotedString pulls every quoted literal out of a raw import statement,
// which covers Go's single-spec and parenthesized-block forms alike
// ("fmt" vs import (\n\t"fmt"\n\t"os"\n)) and Rust/JS string-literal imports.
var quotedString = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// pythonFrom matches "from <module> import <names>"; pythonImport matches
// "import <module>[ as alias][, ...]".
var pythonFrom = regexp.MustCompile(`^\s*from\s+([.\w]+)\s+import\s+(.+)$`)
var pythonImport = regexp.MustCompile(`^\s*import\s+(.+)$`)

// rustUsePrefix matches the leading "use"/"pub use" keyword of a
// use_declaration, which rustUseSpecifiers strips before cutting the path
// at its brace group.
var rustUsePrefix = regexp.MustCompile(`^\s*(?:pub\s+)?use\s+`)

// moduleSpecifiers extracts the raw module/path specifiers referenced by one
// import statement's source text, per language. A statement can reference
// more than one specifier (a Go import block, a Rust "use a::{b, c}").
func moduleSpecifiers(language, raw string) []string {
	raw = strings.TrimRight(raw, " \t\r\n")
	switch language {
	case "go", "rust", "javascript", "typescript":
		var out []string
		for _, m := range quotedString.FindAllStringSubmatch(raw, -1) {
			if m[1] != "" {
				out = append(out, m[1])
			} else if m[2] != "" {
				out = append(out, m[2])
			}
		}
		if language == "rust" && len(out) == 0 {
			out = rustUseSpecifiers(raw)
		}
		return out
	case "python":
		// "from X import Y" is ambiguous without checking the filesystem:
		// Y may be a submodule of package X (resolves to X/Y.py) or an
		// attribute/name defined inside X's own module (resolves to X
		// itself). Both candidate forms are returned; the resolver keeps
		// whichever actually matches a known file.
		if m := pythonFrom.FindStringSubmatch(raw); m != nil {
			module := m[1]
			out := []string{module}
			for _, name := range strings.Split(m[2], ",") {
				name = strings.TrimSpace(name)
				name = strings.SplitN(name, " as ", 2)[0]
				name = strings.TrimSpace(name)
				if name == "" || name == "*" {
					continue
				}
				out = append(out, module+"."+name)
			}
			return out
		}
		if m := pythonImport.FindStringSubmatch(raw); m != nil {
			var specs []string
			for _, s := range strings.Split(m[1], ",") {
				s = strings.TrimSpace(s)
				s = strings.TrimSpace(strings.SplitN(s, " as ", 2)[0])
				if s != "" {
					specs = append(specs, s)
				}
			}
			return specs
		}
		return nil
	default:
		return nil
	}
}

// rustUseSpecifiers handles a bare "use a::b::{c, d};" (no quoted literal)
// by collapsing it to the "a::b" path shared by every grouped item.
func rustUseSpecifiers(raw string) []string {
	body := rustUsePrefix.ReplaceAllString(raw, "")
	body = strings.TrimRight(strings.TrimSpace(body), ";")
	if idx := strings.Index(body, "{"); idx >= 0 {
		body = body[:idx]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "::")
	if body == "" {
		return nil
	}
	return []string{body}
}

// Resolver maps a module specifier referenced from a given file to one of
// the known in-repo file paths, on a best-effort basis; imports that resolve
// outside the analyzed file set (stdlib, third-party packages) are dropped.
type Resolver struct {
	// byPath indexes every known file for suffix/segment matching.
	byPath map[string]bool
	// byDir indexes, for each directory, the files it directly contains.
	byDir map[string][]string
}

// NewResolver indexes paths (already-normalized, '/'-separated, relative to
// the analysis root) for later lookups.
func NewResolver(paths []string) *Resolver {
	r := &Resolver{byPath: make(map[string]bool, len(paths)), byDir: make(map[string][]string)}
	for _, p := range paths {
		p = filepath.ToSlash(p)
		r.byPath[p] = true
		dir := path.Dir(p)
		r.byDir[dir] = append(r.byDir[dir], p)
	}
	return r
}

// Resolve maps one module specifier, referenced from fromPath in language,
// to a known file path. Returns ok=false when no in-repo file plausibly
// matches (an external/stdlib dependency, most often).
func (r *Resolver) Resolve(fromPath, language, spec string) (string, bool) {
	switch language {
	case "python":
		return r.resolvePython(fromPath, spec)
	case "javascript", "typescript":
		return r.resolveRelative(fromPath, spec, []string{".ts", ".tsx", ".js", ".jsx"})
	case "go":
		return r.resolveBySuffix(spec, []string{".go"})
	case "rust":
		return r.resolveRust(fromPath, spec)
	default:
		return "", false
	}
}

func (r *Resolver) resolvePython(fromPath, spec string) (string, bool) {
	spec = strings.TrimPrefix(spec, ".")
	segments := strings.Split(spec, ".")
	rel := strings.Join(segments, "/")
	baseDir := path.Dir(filepath.ToSlash(fromPath))

	candidates := []string{
		rel + ".py",
		path.Join(rel, "__init__.py"),
		path.Join(baseDir, rel+".py"),
		path.Join(baseDir, rel, "__init__.py"),
	}
	for _, c := range candidates {
		if r.byPath[c] {
			return c, true
		}
	}
	return r.resolveBySuffix(rel+".py", nil)
}

func (r *Resolver) resolveRelative(fromPath, spec string, exts []string) (string, bool) {
	if !strings.HasPrefix(spec, ".") {
		return r.resolveBySuffix(spec, exts)
	}
	base := path.Join(path.Dir(filepath.ToSlash(fromPath)), spec)
	for _, ext := range exts {
		if r.byPath[base+ext] {
			return base + ext, true
		}
		for _, idx := range []string{"/index" + ext} {
			if r.byPath[base+idx] {
				return base + idx, true
			}
		}
	}
	if r.byPath[base] {
		return base, true
	}
	return "", false
}

func (r *Resolver) resolveRust(fromPath, spec string) (string, bool) {
	spec = strings.TrimPrefix(spec, "crate::")
	spec = strings.TrimPrefix(spec, "self::")
	if strings.HasPrefix(spec, "super::") {
		spec = strings.TrimPrefix(spec, "super::")
	}
	rel := strings.ReplaceAll(spec, "::", "/")
	return r.resolveBySuffix(rel+".rs", nil)
}

// resolveBySuffix is the fallback used by every language for package-style
// specifiers (Go's full import path, a dotted Python package, a Rust crate
// path): find the known file whose path ends with the longest matching
// trailing segment run of spec. Heuristic, not exact — two files sharing a
// tail ("a/b/x.go" and "c/b/x.go" against spec "b/x") resolve to whichever
// is found first in iteration order, which is acceptable for a fan-in/fan-out
// and cycle approximation rather than a build-accurate import graph.
func (r *Resolver) resolveBySuffix(spec string, exts []string) (string, bool) {
	spec = strings.Trim(spec, "/")
	if spec == "" {
		return "", false
	}
	segments := strings.Split(spec, "/")
	last := segments[len(segments)-1]

	best := ""
	bestScore := -1
	for p := range r.byPath {
		if len(exts) > 0 {
			matched := false
			for _, ext := range exts {
				if strings.HasSuffix(p, ext) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		pSegments := strings.Split(strings.TrimSuffix(p, path.Ext(p)), "/")
		if len(pSegments) == 0 {
			continue
		}
		if pSegments[len(pSegments)-1] != last && path.Base(p) != last {
			continue
		}
		score := commonSuffixLen(pSegments, segments)
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func commonSuffixLen(a, b []string) int {
	i, j, n := len(a)-1, len(b)-1, 0
	for i >= 0 && j >= 0 && a[i] == b[j] {
		n++
		i--
		j--
	}
	return n
}
