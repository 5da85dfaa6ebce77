package pipeline

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/clone"
)

// preorderLabels walks ctx's tree within [startByte, endByte) and returns the
// preorder sequence of node-kind labels APTED's simplified labelled tree is
// built from. Iterative (explicit stack), requirement that
// adapters avoid unbounded recursion on pathological inputs.
func preorderLabels(ctx *astsvc.Context, startByte, endByte uint) []string {
	root := ctx.Tree.RootNode()
	var labels []string

	type frame struct {
		node *tree_sitter.Node
	}
	stack := []frame{{&root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := top.node
		if n == nil {
			continue
		}
		if n.EndByte() <= startByte || n.StartByte() >= endByte {
			continue
		}
		labels = append(labels, n.Kind())

		childCount := int(n.ChildCount())
		children := make([]frame, 0, childCount)
		for i := 0; i < childCount; i++ {
			c := n.Child(uint(i))
			if c != nil {
				children = append(children, frame{c})
			}
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return labels
}

// adapterSupport implements clone.AdapterSupport over a precomputed
// doc-id -> preorder-labels map, since APTED verification runs after every
// document's tree context has already gone out of scope.
type adapterSupport struct {
	labels map[string][]string
}

func (a *adapterSupport) PreorderLabels(doc *clone.Document) []string {
	return a.labels[doc.ID]
}
