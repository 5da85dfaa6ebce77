package astsvc

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// DecisionKind is one entry of the decision-point taxonomy used by cyclomatic and cognitive complexity.
type DecisionKind string

const (
	DecisionIf         DecisionKind = "If"
	DecisionElseIf     DecisionKind = "ElseIf"
	DecisionWhile      DecisionKind = "While"
	DecisionFor        DecisionKind = "For"
	DecisionCase       DecisionKind = "Case"
	DecisionTry        DecisionKind = "Try"
	DecisionCatch      DecisionKind = "Catch"
	DecisionLogicalAnd DecisionKind = "LogicalAnd"
	DecisionLogicalOr  DecisionKind = "LogicalOr"
	DecisionTernary    DecisionKind = "ConditionalExpression"
)

// DecisionPoint is one matched decision point with the nesting depth it was found
// at (used by the cognitive-complexity formula: weight = 1 + nesting_level).
type DecisionPoint struct {
	Kind  DecisionKind
	Depth int
	Line  int
}

// nestingKinds are node kinds that increment the nesting depth on entry. This
// mirrors the decision-point taxonomy's "entering structured control constructs"
// rule, applied uniformly across every grammar this service supports.
var nestingKinds = map[string]bool{
	"if_statement": true, "while_statement": true, "for_statement": true,
	"for_in_statement": true, "try_statement": true, "switch_statement": true,
	"match_expression": true, "for_expression": true, "while_let_expression": true,
	"if_expression": true,
}

// kindTable maps a language name to its tree-sitter node-kind -> DecisionKind
// table. Languages absent from this table (the generic-adapter fallback
// languages) still walk the tree but find zero decision points, which is a
// documented approximation, not a crash.
var kindTable = map[string]map[string]DecisionKind{
	"go": {
		"if_statement": DecisionIf, "for_statement": DecisionFor,
		"expression_case": DecisionCase, "communication_case": DecisionCase,
		"default_case": DecisionCase,
	},
	"python": {
		"if_statement": DecisionIf, "elif_clause": DecisionElseIf,
		"while_statement": DecisionWhile, "for_statement": DecisionFor,
		"try_statement": DecisionTry, "except_clause": DecisionCatch,
		"conditional_expression": DecisionTernary,
	},
	"javascript": {
		"if_statement": DecisionIf, "while_statement": DecisionWhile,
		"for_statement": DecisionFor, "for_in_statement": DecisionFor,
		"switch_case": DecisionCase, "try_statement": DecisionTry,
		"catch_clause": DecisionCatch, "ternary_expression": DecisionTernary,
	},
	"typescript": {
		"if_statement": DecisionIf, "while_statement": DecisionWhile,
		"for_statement": DecisionFor, "for_in_statement": DecisionFor,
		"switch_case": DecisionCase, "try_statement": DecisionTry,
		"catch_clause": DecisionCatch, "ternary_expression": DecisionTernary,
	},
	"rust": {
		"if_expression": DecisionIf, "while_expression": DecisionWhile,
		"for_expression": DecisionFor, "while_let_expression": DecisionWhile,
		"match_arm": DecisionCase,
	},
}

// logicalOperatorKinds maps a language to the node kind that represents a binary
// boolean expression; its operator text is read from the "operator" field.
var logicalOperatorKinds = map[string]string{
	"go": "binary_expression", "javascript": "binary_expression",
	"typescript": "binary_expression", "rust": "binary_expression",
	"python": "boolean_operator",
}

// findNode locates the descendant of root whose byte range exactly matches
// [startByte, endByte), the same range a CodeEntity was extracted with.
func findNode(root *tree_sitter.Node, startByte, endByte uint) *tree_sitter.Node {
	if root.StartByte() == startByte && root.EndByte() == endByte {
		return root
	}
	if startByte < root.StartByte() || endByte > root.EndByte() {
		return nil
	}
	childCount := int(root.ChildCount())
	for i := 0; i < childCount; i++ {
		c := root.Child(uint(i))
		if c == nil {
			continue
		}
		if startByte >= c.StartByte() && endByte <= c.EndByte() {
			if found := findNode(c, startByte, endByte); found != nil {
				return found
			}
		}
	}
	return nil
}

// ForEntity enumerates decision points within the entity spanning
// [startByte, endByte) in ctx's tree, with nesting depth measured from the
// entity's own root (depth 0 at the entity boundary).
func ForEntity(ctx *Context, language string, startByte, endByte uint) []DecisionPoint {
	root := ctx.Tree.RootNode()
	entityNode := findNode(&root, startByte, endByte)
	if entityNode == nil {
		entityNode = &root
	}

	table := kindTable[language]
	logicalKind := logicalOperatorKinds[language]

	var points []DecisionPoint
	depth := 0

	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()
		entersNesting := nestingKinds[kind]

		if dk, ok := table[kind]; ok {
			points = append(points, DecisionPoint{Kind: dk, Depth: depth, Line: int(n.StartPosition().Row) + 1})
		}
		if kind == logicalKind {
			if op := operatorText(n, ctx.Source); op == "&&" || op == "and" {
				points = append(points, DecisionPoint{Kind: DecisionLogicalAnd, Depth: depth, Line: int(n.StartPosition().Row) + 1})
			} else if op == "||" || op == "or" {
				points = append(points, DecisionPoint{Kind: DecisionLogicalOr, Depth: depth, Line: int(n.StartPosition().Row) + 1})
			}
		}

		if entersNesting {
			depth++
		}
		childCount := int(n.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(n.Child(uint(i)))
		}
		if entersNesting {
			depth--
		}
	}

	walk(entityNode)
	return points
}

func operatorText(n *tree_sitter.Node, source []byte) string {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return ""
	}
	return string(source[op.StartByte():op.EndByte()])
}

// CyclomaticFromPoints is 1 + the number of decision points.
func CyclomaticFromPoints(points []DecisionPoint) int {
	return 1 + len(points)
}

// CognitiveFromPoints is Σ(1 + depth) over decision points.
func CognitiveFromPoints(points []DecisionPoint) int {
	total := 0
	for _, p := range points {
		total += 1 + p.Depth
	}
	return total
}

// MaxNestingDepth is the maximum depth of any decision point.
func MaxNestingDepth(points []DecisionPoint) int {
	max := 0
	for _, p := range points {
		if p.Depth > max {
			max = p.Depth
		}
	}
	return max
}
