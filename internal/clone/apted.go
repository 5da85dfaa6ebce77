package clone

import (
	"github.com/hbollon/go-edlib"
)

// LabelledTree is a flat preorder sequence of node-kind labels built from an
// adapter's AST, truncated to maxNodes for the APTED verification pass.
type LabelledTree struct {
	Labels    []string
	Truncated bool
}

// BuildLabelledTree walks preorderLabels (already produced by a language
// adapter's AST walk) and truncates to maxNodes, recording whether truncation
// occurred so the candidate report can flag a similarity score computed over
// a partial tree.
func BuildLabelledTree(preorderLabels []string, maxNodes int) LabelledTree {
	if maxNodes <= 0 || len(preorderLabels) <= maxNodes {
		return LabelledTree{Labels: preorderLabels}
	}
	return LabelledTree{Labels: preorderLabels[:maxNodes], Truncated: true}
}

// EditDistance estimates the tree-edit distance between two labelled trees.
// Full APTED dynamic-programs over subtree mappings; this uses go-edlib's
// Levenshtein distance over each tree's preorder label sequence as a
// simplified edit-cost proxy, avoiding a bespoke O(n^3) tree-mapping
// implementation for a verification pass that only needs to reject
// clearly-dissimilar pairs.
func EditDistance(a, b LabelledTree) int {
	seqA := joinLabels(a.Labels)
	seqB := joinLabels(b.Labels)
	return edlib.LevenshteinDistance(seqA, seqB)
}

// Similarity scores a candidate pair by 1 − 2·edit_cost/(|T1|+|T2|), the
// standard APTED normalized similarity, and reports whether either tree
// was truncated.
func Similarity(a, b LabelledTree) (float64, bool) {
	size := len(a.Labels) + len(b.Labels)
	if size == 0 {
		return 1.0, a.Truncated || b.Truncated
	}
	cost := EditDistance(a, b)
	sim := 1.0 - 2.0*float64(cost)/float64(size)
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, a.Truncated || b.Truncated
}

func joinLabels(labels []string) string {
	out := make([]byte, 0, len(labels)*2)
	for _, l := range labels {
		out = append(out, '\x1f')
		out = append(out, l...)
	}
	return string(out)
}
