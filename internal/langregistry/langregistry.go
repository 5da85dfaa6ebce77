// Package langregistry maps a file extension to a parser/adapter pair and owns
// the set of supported languages.
//
// Each primary adapter (Python, JavaScript, TypeScript, Rust, Go) wraps a
// tree-sitter grammar and a capture-tagged query. Adapters outside that set
// fall back to a generic adapter that still parses and counts nodes (so
// internal/astsvc can walk their trees, although its decision-point tables
// cover only the primary languages and find no decision points in them) but
// does not attempt structured entity extraction — extensibility without a
// bespoke query per grammar.
package langregistry

import (
	"strings"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut/internal/entity"
	verrors "github.com/sibyllinesoft/valknut/internal/errors"
)

// Import is one parsed import/require statement.
type Import struct {
	Source string
	Alias  string
}

// Adapter is the per-language capability set every language implementation
// exposes: parse, extract entities/imports/calls/identifiers, and count
// blocks/nodes.
type Adapter interface {
	Name() string
	ParseTree(source []byte) (*tree_sitter.Tree, error)
	ExtractCodeEntities(source []byte, path string, counter *entity.IDCounter) ([]entity.CodeEntity, error)
	ExtractFunctionCalls(source []byte) ([]string, error)
	ExtractIdentifiers(source []byte) ([]string, error)
	ExtractImports(source []byte) ([]Import, error)
	CountASTNodes(tree *tree_sitter.Tree) int
	CountDistinctBlocks(tree *tree_sitter.Tree) int
}

// Registry maps a file extension to its Adapter.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]Adapter
	fallback Adapter
}

// NewDefault builds the registry with every primary adapter plus the generic
// fallback wired to the extensibility grammars.
func NewDefault() (*Registry, error) {
	r := &Registry{byExt: make(map[string]Adapter)}

	primaries := []struct {
		exts []string
		a    func() (Adapter, error)
	}{
		{[]string{".py"}, newPythonAdapter},
		{[]string{".js", ".jsx"}, newJavaScriptAdapter},
		{[]string{".ts", ".tsx"}, newTypeScriptAdapter},
		{[]string{".rs"}, newRustAdapter},
		{[]string{".go"}, newGoAdapter},
	}
	for _, p := range primaries {
		a, err := p.a()
		if err != nil {
			return nil, err
		}
		for _, ext := range p.exts {
			r.byExt[ext] = a
		}
	}

	fb, err := newGenericAdapters()
	if err != nil {
		return nil, err
	}
	for ext, a := range fb {
		r.byExt[ext] = a
	}

	return r, nil
}

// Lookup returns the adapter registered for ext (with leading dot), if any.
func (r *Registry) Lookup(ext string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExt[ext]
	return a, ok
}

// Extensions returns every extension the registry recognizes.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

// --- shared tree-sitter scaffolding -----------------------------------------------

// tsAdapter is the common implementation backing every primary adapter: one parser,
// one compiled query, and a dispatch table from capture name to CodeEntity kind.
type tsAdapter struct {
	name        string
	language    *tree_sitter.Language
	query       *tree_sitter.Query
	kindByClass map[string]entity.Kind // capture name ("function","class",...) -> entity.Kind
	parserPool  sync.Pool
}

func newTSAdapter(name string, lang unsafe.Pointer, queryStr string, kinds map[string]entity.Kind) (*tsAdapter, error) {
	language := tree_sitter.NewLanguage(lang)
	query, queryErr := tree_sitter.NewQuery(language, queryStr)
	if query == nil {
		return nil, verrors.Configuration(name + " adapter: failed to compile tree-sitter query: " + errString(queryErr))
	}
	a := &tsAdapter{name: name, language: language, query: query, kindByClass: kinds}
	a.parserPool.New = func() any {
		p := tree_sitter.NewParser()
		_ = p.SetLanguage(language)
		return p
	}
	return a, nil
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func (a *tsAdapter) Name() string { return a.name }

func (a *tsAdapter) ParseTree(source []byte) (*tree_sitter.Tree, error) {
	p := a.parserPool.Get().(*tree_sitter.Parser)
	defer a.parserPool.Put(p)
	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, verrors.Parse("", nil)
	}
	return tree, nil
}

func (a *tsAdapter) ExtractCodeEntities(source []byte, path string, counter *entity.IDCounter) ([]entity.CodeEntity, error) {
	tree, err := a.ParseTree(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(a.query, tree.RootNode(), source)
	captureNames := a.query.CaptureNames()

	var out []entity.CodeEntity
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		var names = make(map[string]string, 2)
		var primaryNode *tree_sitter.Node
		var primaryCapture string

		for _, c := range m.Captures {
			cn := captureNames[c.Index]
			node := c.Node
			if strings.HasSuffix(cn, ".name") {
				names[cn] = string(source[node.StartByte():node.EndByte()])
				continue
			}
			if _, known := a.kindByClass[cn]; known {
				primaryNode = &node
				primaryCapture = cn
			}
		}
		if primaryNode == nil {
			continue
		}
		kind := a.kindByClass[primaryCapture]
		displayName := names[primaryCapture+".name"]
		if displayName == "" {
			displayName = "<anonymous>"
		}

		start := primaryNode.StartPosition()
		end := primaryNode.EndPosition()
		out = append(out, entity.CodeEntity{
			ID:         counter.Next(path, kind),
			Kind:       kind,
			Name:       displayName,
			FilePath:   path,
			LineRange:  entity.LineRange{Start: int(start.Row) + 1, End: int(end.Row) + 1},
			SourceCode: string(source[primaryNode.StartByte():primaryNode.EndByte()]),
			ByteRange:  entity.ByteRange{Start: int(primaryNode.StartByte()), End: int(primaryNode.EndByte())},
			ASTKind:    primaryNode.Kind(),
			Metadata: map[string]any{
				"start_byte": int(primaryNode.StartByte()),
				"end_byte":   int(primaryNode.EndByte()),
				"ast_kind":   primaryNode.Kind(),
			},
		})
	}
	return out, nil
}

func (a *tsAdapter) ExtractFunctionCalls(source []byte) ([]string, error) {
	tree, err := a.ParseTree(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var calls []string
	walkIterative(tree.RootNode(), func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "call_expression", "call", "method_invocation", "invocation_expression":
			if fn := n.ChildByFieldName("function"); fn != nil {
				calls = append(calls, string(source[fn.StartByte():fn.EndByte()]))
			}
		}
	})
	return calls, nil
}

func (a *tsAdapter) ExtractIdentifiers(source []byte) ([]string, error) {
	tree, err := a.ParseTree(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var ids []string
	walkIterative(tree.RootNode(), func(n *tree_sitter.Node) {
		if n.Kind() == "identifier" {
			ids = append(ids, string(source[n.StartByte():n.EndByte()]))
		}
	})
	return ids, nil
}

func (a *tsAdapter) ExtractImports(source []byte) ([]Import, error) {
	tree, err := a.ParseTree(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var imports []Import
	walkIterative(tree.RootNode(), func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "import_statement", "import_from_statement", "import_spec", "import_declaration", "use_declaration", "use_clause":
			imports = append(imports, Import{Source: string(source[n.StartByte():n.EndByte()])})
		}
	})
	return imports, nil
}

// decisionPointKinds mirrors the decision-point taxonomy internal/astsvc
// uses for cyclomatic/cognitive complexity; it is re-used here, which is why
// CountASTNodes/CountDistinctBlocks live on the adapter instead of
// duplicating a walker there.
func (a *tsAdapter) CountASTNodes(tree *tree_sitter.Tree) int {
	count := 0
	walkIterative(tree.RootNode(), func(*tree_sitter.Node) { count++ })
	return count
}

var blockKinds = map[string]bool{
	"if_statement": true, "for_statement": true, "while_statement": true,
	"try_statement": true, "switch_statement": true, "match_expression": true,
	"block": true, "compound_statement": true,
}

func (a *tsAdapter) CountDistinctBlocks(tree *tree_sitter.Tree) int {
	count := 0
	walkIterative(tree.RootNode(), func(n *tree_sitter.Node) {
		if blockKinds[n.Kind()] {
			count++
		}
	})
	return count
}

// walkIterative performs an explicit-stack pre-order traversal so deeply
// nested inputs (e.g. very long grouped Go const blocks) cannot exhaust the
// call stack.
func walkIterative(root *tree_sitter.Node, visit func(*tree_sitter.Node)) {
	if root == nil {
		return
	}
	stack := []tree_sitter.Node{*root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(&n)
		childCount := int(n.ChildCount())
		for i := childCount - 1; i >= 0; i-- {
			if c := n.Child(uint(i)); c != nil {
				stack = append(stack, *c)
			}
		}
	}
}
