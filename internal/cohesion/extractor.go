package cohesion

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/config"
)

// Entity is one extracted cohesion-relevant unit: a function, method, class,
// or similar declaration, together with the token bag built from its name,
// signature, and body references. Grounded on extractor.rs's CohesionEntity.
type Entity struct {
	Name          string
	QualifiedName string
	Kind          string
	LineStart     int
	LineEnd       int
	Docstring     string
	Symbols       ExtractedSymbols
}

// entityNodeKinds maps a language to its declaration node kinds and the
// cohesion entity kind each one represents, mirroring extractor.rs's
// classify_python_entity/classify_js_entity/classify_rust_entity/classify_go_entity.
var entityNodeKinds = map[string]map[string]string{
	"python": {
		"function_definition": "function",
		"class_definition":    "class",
	},
	"javascript": {
		"function_declaration": "function",
		"class_declaration":    "class",
		"method_definition":    "method",
	},
	"typescript": {
		"function_declaration": "function",
		"class_declaration":    "class",
		"method_definition":    "method",
		"interface_declaration": "interface",
	},
	"rust": {
		"function_item": "function",
		"struct_item":   "struct",
		"enum_item":     "enum",
		"trait_item":    "trait",
		"impl_item":     "impl",
	},
	"go": {
		"function_declaration": "function",
		"method_declaration":   "method",
		"type_spec":            "type",
	},
}

// commentPrefixes lists the leading-comment markers to scan backward for when
// looking for a docstring-style comment above a declaration (Go, Rust, JS/TS;
// Python uses a body-leading string literal instead, handled separately).
var commentPrefixes = map[string][]string{
	"go": {"//"}, "rust": {"///", "//!"},
	"javascript": {"//", "*", "/**"}, "typescript": {"//", "*", "/**"},
}

// ExtractEntities walks ctx's tree and returns every declaration matching
// language's entity node kinds, with qualified names built from the parent
// chain (per-entity extraction, step 1).
func ExtractEntities(ctx *astsvc.Context, language string, symCfg config.CohesionSymbols) []Entity {
	kinds, ok := entityNodeKinds[language]
	if !ok {
		return nil
	}
	var out []Entity
	root := ctx.Tree.RootNode()
	extractRecursive(root, ctx.Source, language, kinds, "", &out, symCfg)
	return out
}

func extractRecursive(node tree_sitter.Node, source []byte, language string, kinds map[string]string, parent string, out *[]Entity, symCfg config.CohesionSymbols) {
	entityKind, isEntity := kinds[node.Kind()]
	qualified := parent

	if isEntity {
		name := childFieldText(node, "name", source)
		if name == "" {
			isEntity = false
		} else {
			if parent != "" {
				qualified = parent + "::" + name
			} else {
				qualified = name
			}

			lineStart := int(node.StartPosition().Row) + 1
			lineEnd := int(node.EndPosition().Row) + 1
			docstring := extractDocstring(node, source, language)
			symbols := extractEntitySymbols(node, source, name, entityKind, symCfg)

			*out = append(*out, Entity{
				Name:          name,
				QualifiedName: qualified,
				Kind:          entityKind,
				LineStart:     lineStart,
				LineEnd:       lineEnd,
				Docstring:     docstring,
				Symbols:       symbols,
			})
		}
	}

	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		c := node.Child(uint(i))
		if c == nil {
			continue
		}
		nextParent := parent
		if isEntity {
			nextParent = qualified
		}
		extractRecursive(*c, source, language, kinds, nextParent, out, symCfg)
	}
}

func childFieldText(node tree_sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return textOf(*child, source)
}

func textOf(n tree_sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) {
		end = uint(len(source))
	}
	if int(start) > len(source) {
		return ""
	}
	return string(source[start:end])
}

// extractEntitySymbols builds the name/signature/referenced-symbol token bag
// for one entity, per extractor.rs's per-kind symbol extraction.
func extractEntitySymbols(node tree_sitter.Node, source []byte, name, kind string, symCfg config.CohesionSymbols) ExtractedSymbols {
	minLen := symCfg.MinTokenLength
	if minLen <= 0 {
		minLen = 2
	}

	nameTokens := tokenizeName(name, minLen)

	var sigTokens []string
	if params := node.ChildByFieldName("parameters"); params != nil {
		sigTokens = tokenizeName(textOf(*params, source), minLen)
	}

	refs := collectReferencedSymbols(node, source, minLen)

	return ExtractedSymbols{
		Kind:              kind,
		NameTokens:        nameTokens,
		SignatureTokens:   sigTokens,
		ReferencedSymbols: refs,
	}
}

// referenceNodeKinds are the tree-sitter node kinds that represent an
// identifier reference (a call target, a type name, a bare identifier use)
// across the supported grammars.
var referenceNodeKinds = map[string]bool{
	"identifier": true, "field_identifier": true, "type_identifier": true,
	"property_identifier": true, "shorthand_property_identifier": true,
}

// collectReferencedSymbols walks node's body for identifier-like leaves,
// tokenizing and deduping them, capped at a small count so one large
// function doesn't dominate the TF-IDF corpus with noise.
func collectReferencedSymbols(node tree_sitter.Node, source []byte, minLen int) []string {
	const maxRefs = 40
	seen := make(map[string]bool)
	var out []string

	stack := []tree_sitter.Node{node}
	for len(stack) > 0 && len(out) < maxRefs {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if referenceNodeKinds[n.Kind()] {
			text := textOf(n, source)
			for _, tok := range tokenizeName(text, minLen) {
				if !seen[tok] {
					seen[tok] = true
					out = append(out, tok)
					if len(out) >= maxRefs {
						break
					}
				}
			}
		}

		childCount := int(n.ChildCount())
		for i := 0; i < childCount; i++ {
			if c := n.Child(uint(i)); c != nil {
				stack = append(stack, *c)
			}
		}
	}
	return out
}

// extractDocstring finds the entity's leading documentation, per language.
func extractDocstring(node tree_sitter.Node, source []byte, language string) string {
	if language == "python" {
		return extractPythonBodyDocstring(node, source)
	}
	return extractLeadingCommentBlock(node, source, commentPrefixes[language])
}

// extractPythonBodyDocstring returns the text of a string literal that is the
// first statement of node's body block, Python's docstring convention.
func extractPythonBodyDocstring(node tree_sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	childCount := int(body.ChildCount())
	for i := 0; i < childCount; i++ {
		c := body.Child(uint(i))
		if c == nil {
			continue
		}
		if c.Kind() == "expression_statement" {
			inner := c.Child(0)
			if inner != nil && inner.Kind() == "string" {
				return strings.Trim(textOf(*inner, source), "\"' \t\n")
			}
			return ""
		}
		if c.Kind() == "comment" {
			continue
		}
		return ""
	}
	return ""
}

// extractLeadingCommentBlock scans the source lines immediately above node's
// start line for a contiguous run of comment lines using any of prefixes,
// returning their joined, marker-stripped text.
func extractLeadingCommentBlock(node tree_sitter.Node, source []byte, prefixes []string) string {
	if len(prefixes) == 0 {
		return ""
	}
	lines := strings.Split(string(source), "\n")
	startLine := int(node.StartPosition().Row)

	var collected []string
	for i := startLine - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			if len(collected) > 0 {
				break
			}
			continue
		}
		matched := false
		stripped := trimmed
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				stripped = strings.TrimSpace(strings.TrimPrefix(trimmed, p))
				matched = true
				break
			}
		}
		if !matched {
			break
		}
		collected = append([]string{stripped}, collected...)
	}
	return strings.TrimSpace(strings.Join(collected, " "))
}

// ExtractModuleDocstring extracts the file-level documentation comment or
// docstring, used for step 4's doc-alignment check.
func ExtractModuleDocstring(ctx *astsvc.Context, language string) string {
	root := ctx.Tree.RootNode()
	if language == "python" {
		childCount := int(root.ChildCount())
		for i := 0; i < childCount; i++ {
			c := root.Child(uint(i))
			if c == nil {
				continue
			}
			if c.Kind() == "expression_statement" {
				inner := c.Child(0)
				if inner != nil && inner.Kind() == "string" {
					return strings.Trim(textOf(*inner, ctx.Source), "\"' \t\n")
				}
				return ""
			}
			if c.Kind() == "comment" {
				continue
			}
			return ""
		}
		return ""
	}

	lines := strings.Split(string(ctx.Source), "\n")
	prefixes := commentPrefixes[language]
	if len(prefixes) == 0 {
		return ""
	}
	var collected []string
	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			if len(collected) > 0 {
				break
			}
			continue
		}
		matched := false
		stripped := trimmed
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				stripped = strings.TrimSpace(strings.TrimPrefix(trimmed, p))
				matched = true
				break
			}
		}
		if !matched {
			break
		}
		collected = append(collected, stripped)
	}
	return strings.TrimSpace(strings.Join(collected, " "))
}
