package structure

import "math"

// Instability is Robert Martin's I = fan_out / (fan_in + fan_out): 0 for a
// node depended on only by others (maximally stable), 1 for a node that only
// depends on others and nothing depends on it (maximally unstable). A node
// with no edges at all (fan_in=fan_out=0) is defined as stable (0), matching
// the convention that an isolated file imposes no coupling risk.
func Instability(fanIn, fanOut int) float64 {
	total := fanIn + fanOut
	if total == 0 {
		return 0
	}
	return float64(fanOut) / float64(total)
}

// QualityInputs is the per-graph summary StructureQualityScore reduces to a
// single [0,100] figure.
type QualityInputs struct {
	NodeCount        int
	CycleNodeCount   int // total nodes participating in any cycle
	MeanInstability  float64
	InstabilityStdev float64
}

// StructureQualityScore synthesizes QualityInputs into the structure_quality
// term the overall health formula uses. No upstream source defines this
// reduction, so it's this repository's own: a 100-point budget, penalized
// by the fraction of files entangled in an import cycle
// (a hard structural defect) and by how far the graph's average instability
// sits from a balanced middle ground, with high variance in instability
// across files (some files all-stable, some all-unstable) penalized too
// since it signals an unlevel, poorly-layered architecture.
func StructureQualityScore(in QualityInputs) float64 {
	if in.NodeCount == 0 {
		return 100
	}
	cycleFraction := float64(in.CycleNodeCount) / float64(in.NodeCount)
	cyclePenalty := cycleFraction * 60

	// Distance from an instability of 0.5 (balanced) toward either extreme,
	// scaled so a fully one-sided codebase (mean 0 or 1) costs 25 points.
	balancePenalty := math.Abs(in.MeanInstability-0.5) * 50

	variancePenalty := in.InstabilityStdev * 30

	score := 100 - cyclePenalty - balancePenalty - variancePenalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// MeanAndStdev returns the mean and population standard deviation of xs.
func MeanAndStdev(xs []float64) (mean, stdev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}
