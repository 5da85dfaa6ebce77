// Package scoring normalizes raw per-entity feature vectors into priority-ranked
// refactoring candidates.
package scoring

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/sibyllinesoft/valknut/internal/entity"
)

// Scheme is one of the six normalization schemes names.
type Scheme string

const (
	SchemeZScore         Scheme = "z_score"
	SchemeMinMax         Scheme = "min_max"
	SchemeRobust         Scheme = "robust"
	SchemeZScoreBayes    Scheme = "z_score_bayesian"
	SchemeMinMaxBayes    Scheme = "min_max_bayesian"
	SchemeRobustBayes    Scheme = "robust_bayesian"
)

// Priority is a total order: None < Low < Medium < High < Critical.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "None"
	}
}

// PriorityFromScore maps an overall score in [0,1] to a priority bin using the
// default priority cutoffs.
func PriorityFromScore(score float64) Priority {
	switch {
	case score >= 0.85:
		return PriorityCritical
	case score >= 0.7:
		return PriorityHigh
	case score >= 0.5:
		return PriorityMedium
	case score >= 0.3:
		return PriorityLow
	default:
		return PriorityNone
	}
}

// CategoryWeights weight each feature category into the overall score.
type CategoryWeights struct {
	Complexity float64
	Graph      float64
	Structure  float64
	Style      float64
	Coverage   float64
}

// StatisticalParams drives the Bayesian-shrinkage confidence estimate.
type StatisticalParams struct {
	ConfidenceLevel  float64
	MinSampleSize    int
	OutlierThreshold float64
}

// ScoringResult is the per-entity output of the scoring pass.
type ScoringResult struct {
	EntityID             string
	OverallScore         float64
	Confidence           float64
	Priority             Priority
	CategoryScores       map[string]float64
	FeatureContributions []FeatureContribution
}

// FeatureContribution is one flattened entry of a ScoringResult's feature
// breakdown (flattens the cyclic candidate/contribution-map design).
type FeatureContribution struct {
	Name         string
	Value        float64
	Normalized   float64
	Contribution float64
}

// featureStats holds the sample statistics needed by every normalization scheme.
type featureStats struct {
	mean, stddev   float64
	min, max       float64
	median, iqr    float64
	n              int
}

func computeStats(values []float64) featureStats {
	n := len(values)
	if n == 0 {
		return featureStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)

	median := percentile(sorted, 0.5)
	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)

	return featureStats{
		mean: mean, stddev: math.Sqrt(variance),
		min: sorted[0], max: sorted[n-1],
		median: median, iqr: q3 - q1, n: n,
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// bayesianShrink pulls a per-feature statistic toward a neutral prior when the
// sample is small, the shrinkage the "_bayesian" scheme variants add.
func bayesianShrink(stat, prior float64, n, minSampleSize int) float64 {
	if n >= minSampleSize || minSampleSize <= 0 {
		return stat
	}
	weight := float64(n) / float64(minSampleSize)
	return weight*stat + (1-weight)*prior
}

// Normalize maps raw values for one feature to [0,1], respecting higherIsWorse
// and the chosen scheme. Always clamps the result into [0,1] so the invariant in
// holds regardless of raw range (including degenerate zero-variance
// inputs).
func Normalize(scheme Scheme, values []float64, higherIsWorse bool, params StatisticalParams) []float64 {
	stats := computeStats(values)
	out := make([]float64, len(values))

	for i, v := range values {
		var n float64
		switch scheme {
		case SchemeZScore, SchemeZScoreBayes:
			stddev := stats.stddev
			if scheme == SchemeZScoreBayes {
				stddev = bayesianShrink(stddev, 1, stats.n, params.MinSampleSize)
			}
			if stddev == 0 {
				n = 0.5
			} else {
				z := (v - stats.mean) / stddev
				n = 1 / (1 + math.Exp(-z)) // logistic squash into (0,1)
			}
		case SchemeRobust, SchemeRobustBayes:
			iqr := stats.iqr
			if scheme == SchemeRobustBayes {
				iqr = bayesianShrink(iqr, 1, stats.n, params.MinSampleSize)
			}
			if iqr == 0 {
				n = 0.5
			} else {
				z := (v - stats.median) / iqr
				n = 1 / (1 + math.Exp(-z))
			}
		default: // SchemeMinMax, SchemeMinMaxBayes
			min, max := stats.min, stats.max
			if scheme == SchemeMinMaxBayes {
				min = bayesianShrink(min, v, stats.n, params.MinSampleSize)
				max = bayesianShrink(max, v, stats.n, params.MinSampleSize)
			}
			if max == min {
				n = 0.5
			} else {
				n = (v - min) / (max - min)
			}
		}
		if higherIsWorse {
			out[i] = clamp01(n)
		} else {
			out[i] = clamp01(1 - n)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FeatureCategory classifies a feature name into one of the five score
// categories weighted by CategoryWeights. Unknown features default to "style".
type FeatureCategory string

const (
	CategoryComplexity FeatureCategory = "complexity"
	CategoryGraph      FeatureCategory = "graph"
	CategoryStructure  FeatureCategory = "structure"
	CategoryStyle      FeatureCategory = "style"
	CategoryCoverage   FeatureCategory = "coverage"
)

// Score runs the full normalization + category + overall scoring pass over a set
// of entities' raw feature vectors, returning one ScoringResult per entity
// sorted by entity id for deterministic emission.
func Score(
	vectors []*entity.FeatureVector,
	registry *entity.Registry,
	categoryOf func(featureName string) FeatureCategory,
	scheme Scheme,
	weights CategoryWeights,
	params StatisticalParams,
) []ScoringResult {
	if len(vectors) == 0 {
		return nil
	}

	featureNames := collectFeatureNames(vectors)

	// raw[feature] -> values across all entities, same order as vectors
	raw := make(map[string][]float64, len(featureNames))
	higherIsWorse := make(map[string]bool, len(featureNames))
	for _, name := range featureNames {
		values := make([]float64, len(vectors))
		for i, v := range vectors {
			values[i] = v.Raw[name]
		}
		raw[name] = values
		if fd, ok := registry.Get(name); ok {
			higherIsWorse[name] = fd.HigherIsWorse
		} else {
			higherIsWorse[name] = true
		}
	}

	normalized := make(map[string][]float64, len(featureNames))
	for _, name := range featureNames {
		normalized[name] = Normalize(scheme, raw[name], higherIsWorse[name], params)
	}

	weightOf := func(cat FeatureCategory) float64 {
		switch cat {
		case CategoryComplexity:
			return weights.Complexity
		case CategoryGraph:
			return weights.Graph
		case CategoryStructure:
			return weights.Structure
		case CategoryCoverage:
			return weights.Coverage
		default:
			return weights.Style
		}
	}

	results := make([]ScoringResult, len(vectors))
	for i, v := range vectors {
		v.Normalized = make(map[string]float64, len(featureNames))
		categorySum := make(map[FeatureCategory]float64)
		categoryWeight := make(map[FeatureCategory]float64)
		var contributions []FeatureContribution

		for _, name := range featureNames {
			norm := normalized[name][i]
			v.Normalized[name] = norm
			cat := categoryOf(name)
			w := weightOf(cat)
			categorySum[cat] += norm * w
			categoryWeight[cat] += w
			contributions = append(contributions, FeatureContribution{
				Name: name, Value: raw[name][i], Normalized: norm, Contribution: norm * w,
			})
		}

		categoryScores := make(map[string]float64)
		var overallSum, overallWeight float64
		for cat, sum := range categorySum {
			cw := categoryWeight[cat]
			if cw == 0 {
				continue
			}
			score := sum / cw
			categoryScores[string(cat)] = score
			overallSum += sum
			overallWeight += cw
		}
		overall := 0.0
		if overallWeight > 0 {
			overall = clamp01(overallSum / overallWeight)
		}

		sort.Slice(contributions, func(a, b int) bool { return contributions[a].Contribution > contributions[b].Contribution })

		results[i] = ScoringResult{
			EntityID:             v.EntityID,
			OverallScore:         overall,
			Confidence:           confidence(len(vectors), params),
			Priority:             PriorityFromScore(overall),
			CategoryScores:       categoryScores,
			FeatureContributions: contributions,
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].EntityID < results[j].EntityID })
	return results
}

func confidence(sampleSize int, params StatisticalParams) float64 {
	min := params.MinSampleSize
	if min <= 0 {
		min = 1
	}
	level := params.ConfidenceLevel
	if level <= 0 {
		level = 0.95
	}
	ratio := float64(sampleSize) / float64(min)
	if ratio > 1 {
		ratio = 1
	}
	return clamp01(level * ratio)
}

func collectFeatureNames(vectors []*entity.FeatureVector) []string {
	set := make(map[string]bool)
	for _, v := range vectors {
		for name := range v.Raw {
			set[name] = true
		}
	}
	names := lo.Keys(set)
	sort.Strings(names)
	return names
}
