package langregistry

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"

	"github.com/sibyllinesoft/valknut/internal/entity"
	verrors "github.com/sibyllinesoft/valknut/internal/errors"
)

// genericAdapter parses with a real grammar and supports node counting (so
// complexity and clone-detection shingling still work) but does not extract
// structured entities — there is no hand-tuned query for it yet. This keeps
// the adapter set extensible without pretending to have entity recognition
// it doesn't.
type genericAdapter struct {
	name     string
	language *tree_sitter.Language
	pool     struct {
		parsers []*tree_sitter.Parser
	}
}

func newGenericAdapter(name string, lang unsafe.Pointer) *genericAdapter {
	language := tree_sitter.NewLanguage(lang)
	return &genericAdapter{name: name, language: language}
}

func (g *genericAdapter) newParser() *tree_sitter.Parser {
	p := tree_sitter.NewParser()
	_ = p.SetLanguage(g.language)
	return p
}

func (g *genericAdapter) Name() string { return g.name }

func (g *genericAdapter) ParseTree(source []byte) (*tree_sitter.Tree, error) {
	p := g.newParser()
	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, verrors.Parse("", nil)
	}
	return tree, nil
}

func (g *genericAdapter) ExtractCodeEntities(source []byte, path string, counter *entity.IDCounter) ([]entity.CodeEntity, error) {
	// No query registered for this language yet; the whole file is reported as a
	// single module-kind entity so it still participates in complexity/clone passes.
	tree, err := g.ParseTree(source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()
	return []entity.CodeEntity{{
		ID:         counter.Next(path, entity.KindModule),
		Kind:       entity.KindModule,
		Name:       path,
		FilePath:   path,
		LineRange:  entity.LineRange{Start: 1, End: int(root.EndPosition().Row) + 1},
		SourceCode: string(source),
		ByteRange:  entity.ByteRange{Start: 0, End: len(source)},
		ASTKind:    root.Kind(),
		Metadata: map[string]any{
			"start_byte": 0, "end_byte": len(source), "ast_kind": root.Kind(),
		},
	}}, nil
}

func (g *genericAdapter) ExtractFunctionCalls(source []byte) ([]string, error) { return nil, nil }
func (g *genericAdapter) ExtractIdentifiers(source []byte) ([]string, error)   { return nil, nil }
func (g *genericAdapter) ExtractImports(source []byte) ([]Import, error)       { return nil, nil }

func (g *genericAdapter) CountASTNodes(tree *tree_sitter.Tree) int {
	count := 0
	walkIterative(tree.RootNode(), func(*tree_sitter.Node) { count++ })
	return count
}

func (g *genericAdapter) CountDistinctBlocks(tree *tree_sitter.Tree) int {
	count := 0
	walkIterative(tree.RootNode(), func(n *tree_sitter.Node) {
		if blockKinds[n.Kind()] {
			count++
		}
	})
	return count
}

func newGenericAdapters() (map[string]Adapter, error) {
	out := map[string]Adapter{
		".java": newGenericAdapter("java", tree_sitter_java.Language()),
		".cpp":  newGenericAdapter("cpp", tree_sitter_cpp.Language()),
		".cc":   newGenericAdapter("cpp", tree_sitter_cpp.Language()),
		".hpp":  newGenericAdapter("cpp", tree_sitter_cpp.Language()),
		".cs":   newGenericAdapter("csharp", tree_sitter_csharp.Language()),
		".php":  newGenericAdapter("php", tree_sitter_php.Language()),
		".zig":  newGenericAdapter("zig", tree_sitter_zig.Language()),
	}
	return out, nil
}
