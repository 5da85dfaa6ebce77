package structure

import (
	"math/rand"
)

// BetweennessCentrality computes, for every node in g, the fraction of
// shortest paths between other node pairs that pass through it, via
// Brandes' algorithm (unweighted, directed). When g has more nodes than
// maxExactSize and useApproximation is set, only a sampleRate-sized random
// subset of source nodes is used and the result is rescaled, per
// config.Graph's use_approximation/approximation_sample_rate — exact
// betweenness is O(V*E), too costly to run on every source node of a large
// repository.
func BetweennessCentrality(g *Graph, useApproximation bool, sampleRate float64, maxExactSize int, rng *rand.Rand) map[string]float64 {
	paths := g.Paths()
	n := len(paths)
	betweenness := make(map[string]float64, n)
	for _, p := range paths {
		betweenness[p] = 0
	}
	if n == 0 {
		return betweenness
	}

	sources := paths
	scale := 1.0
	if useApproximation && n > maxExactSize {
		sources = sampleNodes(paths, sampleRate, rng)
		if len(sources) == 0 {
			sources = paths[:1]
		}
		scale = float64(n) / float64(len(sources))
	}

	for _, s := range sources {
		brandesSingleSource(g, s, betweenness)
	}

	if scale != 1.0 {
		for k := range betweenness {
			betweenness[k] *= scale
		}
	}

	// Directed-graph convention: halve nothing (undirected graphs divide by
	// 2 to avoid double counting each pair once per direction; a directed
	// walk already counts each ordered pair once).
	return betweenness
}

// sampleNodes returns a deterministic-given-rng random subset of paths sized
// floor(rate*len(paths)), at least 1.
func sampleNodes(paths []string, rate float64, rng *rand.Rand) []string {
	if rate <= 0 {
		rate = 0.1
	}
	if rate > 1 {
		rate = 1
	}
	k := int(rate * float64(len(paths)))
	if k < 1 {
		k = 1
	}
	if k >= len(paths) {
		return paths
	}
	shuffled := append([]string(nil), paths...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:k]
}

// brandesSingleSource runs one BFS-based accumulation pass of Brandes'
// algorithm from source s, adding s's contribution into betweenness.
func brandesSingleSource(g *Graph, s string, betweenness map[string]float64) {
	stack := []string{}
	preds := make(map[string][]string)
	sigma := make(map[string]float64)
	dist := make(map[string]int)

	for _, p := range g.Paths() {
		sigma[p] = 0
		dist[p] = -1
	}
	sigma[s] = 1
	dist[s] = 0

	queue := []string{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		stack = append(stack, v)
		for _, w := range g.Neighbors(v) {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				preds[w] = append(preds[w], v)
			}
		}
	}

	delta := make(map[string]float64)
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, v := range preds[w] {
			if sigma[w] != 0 {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
		}
		if w != s {
			betweenness[w] += delta[w]
		}
	}
}

// ClosenessCentrality computes, for every node, (reachable-1)/sum(distance
// to each reachable node) via a BFS per node — Wasserman-Faust-normalized
// closeness so disconnected graphs (the common case for an import forest)
// still produce a comparable [0,1] figure per node instead of an
// infinite-distance blowup. Approximated the same way as betweenness when
// the graph exceeds maxExactSize.
func ClosenessCentrality(g *Graph, useApproximation bool, sampleRate float64, maxExactSize int, rng *rand.Rand) map[string]float64 {
	paths := g.Paths()
	n := len(paths)
	closeness := make(map[string]float64, n)
	if n == 0 {
		return closeness
	}

	sources := paths
	if useApproximation && n > maxExactSize {
		sources = sampleNodes(paths, sampleRate, rng)
	}
	computed := make(map[string]bool, len(sources))
	for _, p := range sources {
		computed[p] = true
		closeness[p] = nodeCloseness(g, p, n)
	}
	if len(computed) == len(paths) {
		return closeness
	}
	// Fill unsampled nodes with the sampled mean so every node reports a
	// value, at the cost of precision for nodes Brandes sampling skipped.
	var sum float64
	for _, v := range closeness {
		sum += v
	}
	mean := 0.0
	if len(closeness) > 0 {
		mean = sum / float64(len(closeness))
	}
	for _, p := range paths {
		if !computed[p] {
			closeness[p] = mean
		}
	}
	return closeness
}

func nodeCloseness(g *Graph, s string, totalNodes int) float64 {
	dist := make(map[string]int)
	dist[s] = 0
	queue := []string{s}
	reached := 0
	var sum int
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.Neighbors(v) {
			if _, ok := dist[w]; !ok {
				dist[w] = dist[v] + 1
				sum += dist[w]
				reached++
				queue = append(queue, w)
			}
		}
	}
	if reached == 0 || sum == 0 {
		return 0
	}
	return float64(reached) / float64(sum) * (float64(reached) / float64(totalNodes-1))
}
