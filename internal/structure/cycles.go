package structure

import "sort"

// tarjanState holds the iteration-order bookkeeping Tarjan's algorithm needs
// across the recursive walk: index/low-link per node and the node stack that
// tracks the current SCC-in-progress.
type tarjanState struct {
	g        *Graph
	index    map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []string
	counter  int
	sccs     [][]string
}

// FindCycles returns every non-trivial strongly connected component of g (a
// group of two or more files that import one another, directly or
// transitively), sorted for determinism. Self-imports are never reported,
// since AddEdge drops self-edges.
// Uses Tarjan's algorithm rather than a simpler per-target DFS scan, since
// the latter would miss cycles that don't all share one common "stack top"
// node in a densely connected component.
func FindCycles(g *Graph) [][]string {
	st := &tarjanState{
		g:       g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, p := range g.Paths() {
		if _, seen := st.index[p]; !seen {
			st.strongConnect(p)
		}
	}

	var cycles [][]string
	for _, scc := range st.sccs {
		if len(scc) > 1 {
			sort.Strings(scc)
			cycles = append(cycles, scc)
			continue
		}
		// A single-node SCC is only a cycle if the node imports itself
		// directly, which AddEdge's self-edge guard already prevents from
		// being recorded, so single-node SCCs are never cycles here.
	}
	sort.Slice(cycles, func(i, j int) bool {
		if len(cycles[i]) != len(cycles[j]) {
			return len(cycles[i]) < len(cycles[j])
		}
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

func (st *tarjanState) strongConnect(v string) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range st.g.Neighbors(v) {
		if _, seen := st.index[w]; !seen {
			st.strongConnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var scc []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, scc)
	}
}
