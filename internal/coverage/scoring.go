package coverage

import "sort"

// fileMetrics aggregates feature statistics across all gaps in one file, used
// to derive dependency_centrality_file (step 4).
type fileMetrics struct {
	totalGapLOC   int
	avgComplexity float64
	centrality    float64
	gapCount      int
}

func calculateFileMetrics(gaps []CoverageGap) map[string]fileMetrics {
	grouped := make(map[string][]*CoverageGap)
	for i := range gaps {
		grouped[gaps[i].Path] = append(grouped[gaps[i].Path], &gaps[i])
	}

	metrics := make(map[string]fileMetrics, len(grouped))
	for path, fileGaps := range grouped {
		totalGapLOC := 0
		var complexitySum float64
		for _, g := range fileGaps {
			totalGapLOC += g.Features.GapLOC
			complexitySum += g.Features.CyclomaticInGap + g.Features.CognitiveInGap
		}
		avgComplexity := 0.0
		if len(fileGaps) > 0 {
			avgComplexity = complexitySum / float64(len(fileGaps))
		}
		metrics[path] = fileMetrics{
			totalGapLOC:   totalGapLOC,
			avgComplexity: avgComplexity,
			centrality:    estimateFileCentrality(path),
			gapCount:      len(fileGaps),
		}
	}
	return metrics
}

// scoreGaps computes each gap's weighted score and sorts gaps descending,
// step 5.
func (d *Detector) scoreGaps(gaps []CoverageGap) {
	weights := d.cfg.Weights
	metrics := calculateFileMetrics(gaps)

	for i := range gaps {
		gap := &gaps[i]
		if m, ok := metrics[gap.Path]; ok {
			gap.Features.DependencyCentralityFile = m.centrality
			if m.totalGapLOC > gap.FileLOC {
				gap.FileLOC = m.totalGapLOC
			}
		}

		sizeScore := normalizeSizeScore(gap.Features.GapLOC)
		complexityScore := normalizeComplexityScore(gap.Features.CyclomaticInGap + gap.Features.CognitiveInGap)
		fanInScore := normalizeFanInScore(gap.Features.FanInGap)
		exportsScore := 0.0
		if gap.Features.ExportsTouched {
			exportsScore = 1.0
		}
		centralityScore := gap.Features.DependencyCentralityFile
		docsScore := 1.0
		if gap.Features.DocstringOrCommentPresent {
			docsScore = 0.0
		}

		score := sizeScore*weights.Size +
			complexityScore*weights.Complexity +
			fanInScore*weights.FanIn +
			exportsScore*weights.Exports +
			centralityScore*weights.Centrality +
			docsScore*weights.Docs
		gap.Score = clamp01(score)
	}

	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Score > gaps[j].Score })
}
