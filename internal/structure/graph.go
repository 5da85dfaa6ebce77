// Package structure builds a directed import graph over the analyzed file
// set and derives package/module cycle, fan-in/fan-out, centrality, and
// stability metrics from it. Generalizes a symbol-level call-graph-and-cycle
// walk one level up, to files.
package structure

import "sort"

// Node is one file in the import graph, with its resolved outgoing imports
// and the incoming edges discovered while building the graph.
type Node struct {
	Path       string
	Imports    []string // resolved file paths this file imports
	ImportedBy []string // resolved file paths that import this file
}

// Graph is a directed graph of file-level import edges.
type Graph struct {
	nodes map[string]*Node
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddFile registers path as a graph node if it isn't already one.
func (g *Graph) AddFile(path string) {
	if _, ok := g.nodes[path]; !ok {
		g.nodes[path] = &Node{Path: path}
	}
}

// AddEdge records that from imports to, deduping repeated edges (a file that
// imports the same module via two statements, or a package with multiple
// call sites into another file).
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		return
	}
	g.AddFile(from)
	g.AddFile(to)
	fromNode := g.nodes[from]
	toNode := g.nodes[to]
	if !containsStr(fromNode.Imports, to) {
		fromNode.Imports = append(fromNode.Imports, to)
	}
	if !containsStr(toNode.ImportedBy, from) {
		toNode.ImportedBy = append(toNode.ImportedBy, from)
	}
}

func containsStr(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// Paths returns every node path in sorted order, for deterministic iteration.
func (g *Graph) Paths() []string {
	out := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Node returns the node for path, or nil if path isn't in the graph.
func (g *Graph) Node(path string) *Node {
	return g.nodes[path]
}

// Size is the number of nodes in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// FanOut is the number of distinct files path imports.
func (g *Graph) FanOut(path string) int {
	if n := g.nodes[path]; n != nil {
		return len(n.Imports)
	}
	return 0
}

// FanIn is the number of distinct files that import path.
func (g *Graph) FanIn(path string) int {
	if n := g.nodes[path]; n != nil {
		return len(n.ImportedBy)
	}
	return 0
}

// Neighbors returns the resolved import targets of path, used by the
// centrality/cycle walks below.
func (g *Graph) Neighbors(path string) []string {
	if n := g.nodes[path]; n != nil {
		return n.Imports
	}
	return nil
}

// PackageGraph collapses a file graph to one node per directory: an edge
// dir(a) -> dir(b) exists whenever some file in dir(a) imports some file in
// dir(b), excluding self-edges within the same directory. This is the unit
// a "package/module cycle" is reported against; the file graph feeds it but
// is also reported in its own right for per-file fan-in/out.
func (g *Graph) PackageGraph(dirOf func(string) string) *Graph {
	pg := NewGraph()
	for _, p := range g.Paths() {
		pg.AddFile(dirOf(p))
	}
	for _, p := range g.Paths() {
		fromDir := dirOf(p)
		for _, imp := range g.Neighbors(p) {
			toDir := dirOf(imp)
			if fromDir != toDir {
				pg.AddEdge(fromDir, toDir)
			}
		}
	}
	return pg
}
