package clone

// QualityWeights are the w1/w2/w3 weights of composite
// quality metric Q = w1·avg_similarity + w2·(1 − noise_ratio) + w3·fraction_passing_gates.
type QualityWeights struct {
	AvgSimilarity   float64
	NoiseComplement float64
	PassingGates    float64
}

// DefaultQualityWeights weighs the three terms equally.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{AvgSimilarity: 1.0 / 3, NoiseComplement: 1.0 / 3, PassingGates: 1.0 / 3}
}

// QualityMetric computes Q for one detection run's candidates and phase counts.
func QualityMetric(candidates []*Candidate, counts PhaseCounts, w QualityWeights) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var simSum float64
	for _, c := range candidates {
		simSum += c.WeightedJaccard
	}
	avgSimilarity := simSum / float64(len(candidates))

	noiseRatio := 0.0
	if counts.RawPairs > 0 {
		noiseRatio = 1.0 - float64(counts.Ranked)/float64(counts.RawPairs)
	}

	fractionPassingGates := 0.0
	if counts.PassedWeighted > 0 {
		fractionPassingGates = float64(counts.PassedGates) / float64(counts.PassedWeighted)
	}

	return w.AvgSimilarity*avgSimilarity + w.NoiseComplement*(1-noiseRatio) + w.PassingGates*fractionPassingGates
}

// CalibrationResult is the outcome of the auto-calibration loop.
type CalibrationResult struct {
	CalibratedThreshold float64
	QualityScore        float64
	Iterations          int
	Counts              PhaseCounts
}

// Calibrate bisects the similarity threshold in [0.5, 0.95] for at most
// maxIterations, looking for |Q − target| < tolerance, 
// auto-calibration loop. runAt re-runs detection at a candidate threshold and
// returns its candidates and phase counts (allowing the caller to supply a
// Detector bound to a fixed document set).
func Calibrate(runAt func(threshold float64) ([]*Candidate, PhaseCounts), target, tolerance float64, maxIterations int, weights QualityWeights) CalibrationResult {
	lo, hi := 0.5, 0.95
	var best CalibrationResult
	bestDelta := -1.0

	for i := 0; i < maxIterations; i++ {
		mid := (lo + hi) / 2
		candidates, counts := runAt(mid)
		q := QualityMetric(candidates, counts, weights)
		delta := q - target
		if delta < 0 {
			delta = -delta
		}

		if bestDelta < 0 || delta < bestDelta {
			bestDelta = delta
			best = CalibrationResult{CalibratedThreshold: mid, QualityScore: q, Iterations: i + 1, Counts: counts}
		}
		if delta < tolerance || (hi-lo) < 0.01 {
			break
		}

		if q < target {
			// Quality too low: a lower threshold admits more (weaker) candidates,
			// which tends to raise noise — so tighten upward instead.
			lo = mid
		} else {
			hi = mid
		}
	}

	return best
}
