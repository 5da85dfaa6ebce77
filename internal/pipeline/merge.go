package pipeline

import (
	"sort"

	"github.com/sibyllinesoft/valknut/internal/clone"
	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/coverage"
	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/structure"
)

// Merge combines a and b into one AnalysisResults merge
// contract: additive counters, weighted averages by entity/file count, max
// for peak memory, union-dedup for warnings. Associative: Merge(Merge(a,
// b), c) == Merge(a, Merge(b, c)), and Merge(empty, x) == x for every field
// that participates in a weighted average (a zero-weight side cannot pull
// the result toward zero).
func Merge(a, b *AnalysisResults) *AnalysisResults {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	aEntities, bEntities := a.Summary.TotalEntities, b.Summary.TotalEntities
	aFiles, bFiles := a.Summary.TotalFiles, b.Summary.TotalFiles

	out := &AnalysisResults{
		Summary: Summary{
			FilesProcessed:      a.Summary.FilesProcessed + b.Summary.FilesProcessed,
			EntitiesAnalyzed:    a.Summary.EntitiesAnalyzed + b.Summary.EntitiesAnalyzed,
			RefactoringNeeded:   a.Summary.RefactoringNeeded + b.Summary.RefactoringNeeded,
			HighPriority:        a.Summary.HighPriority + b.Summary.HighPriority,
			Critical:            a.Summary.Critical + b.Summary.Critical,
			AvgRefactoringScore: weightedAvg(a.Summary.AvgRefactoringScore, aEntities, b.Summary.AvgRefactoringScore, bEntities),
			CodeHealthScore:     weightedAvg(a.Summary.CodeHealthScore, aEntities, b.Summary.CodeHealthScore, bEntities),
			TotalFiles:          aFiles + bFiles,
			TotalEntities:       aEntities + bEntities,
			TotalLinesOfCode:    a.Summary.TotalLinesOfCode + b.Summary.TotalLinesOfCode,
			Languages:           unionStrings(a.Summary.Languages, b.Summary.Languages),
			TotalIssues:         a.Summary.TotalIssues + b.Summary.TotalIssues,
			HighPriorityIssues:  a.Summary.HighPriorityIssues + b.Summary.HighPriorityIssues,
			CriticalIssues:      a.Summary.CriticalIssues + b.Summary.CriticalIssues,
			DocHealthScore:      weightedAvg(a.Summary.DocHealthScore, aFiles, b.Summary.DocHealthScore, bFiles),
			DocIssueCount:       a.Summary.DocIssueCount + b.Summary.DocIssueCount,
		},
		Passes: StageResultsBundle{
			Structure:   mergeStructureResults(a.Passes.Structure, b.Passes.Structure),
			Coverage:    append(append([]coverage.CoveragePack{}, a.Passes.Coverage...), b.Passes.Coverage...),
			Complexity:  append(append([]complexity.Metrics{}, a.Passes.Complexity...), b.Passes.Complexity...),
			Refactoring: append(append([]refactor.Issue{}, a.Passes.Refactoring...), b.Passes.Refactoring...),
			Impact:      append(append([]refactor.Suggestion{}, a.Passes.Impact...), b.Passes.Impact...),
			LSH:         append(append([]*clone.Candidate{}, a.Passes.LSH...), b.Passes.LSH...),
			Cohesion:    mergeCohesionResults(a.Passes.Cohesion, b.Passes.Cohesion),
		},
		RefactoringCandidates: append(append([]refactor.Candidate{}, a.RefactoringCandidates...), b.RefactoringCandidates...),
		CoveragePacks:         append(append([]coverage.CoveragePack{}, a.CoveragePacks...), b.CoveragePacks...),
		Warnings:              unionStrings(a.Warnings, b.Warnings),
		CodeDictionary:        mergeCodeDictionary(a.CodeDictionary, b.CodeDictionary),
		Statistics:            mergeStatistics(a.Statistics, b.Statistics, aFiles, bFiles),
		HealthMetrics:         mergeHealth(a.HealthMetrics, b.HealthMetrics, aEntities, bEntities),
	}
	sortCandidates(out.RefactoringCandidates)

	if out.HealthMetrics != nil {
		out.QualityGate = EvaluateQualityGates(*out.HealthMetrics, DefaultQualityGates(), out.Passes.Refactoring)
	}
	return out
}

func weightedAvg(av float64, aw int, bv float64, bw int) float64 {
	if aw+bw == 0 {
		return 0
	}
	return (av*float64(aw) + bv*float64(bw)) / float64(aw+bw)
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func mergeCodeDictionary(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeStatistics(a, b Statistics, aFiles, bFiles int) Statistics {
	features := make(map[string]float64, len(a.FeaturesPerEntity)+len(b.FeaturesPerEntity))
	for k := range a.FeaturesPerEntity {
		features[k] = 0
	}
	for k := range b.FeaturesPerEntity {
		features[k] = 0
	}
	for k := range features {
		features[k] = weightedAvg(a.FeaturesPerEntity[k], aFiles, b.FeaturesPerEntity[k], bFiles)
	}
	priority := mergeIntMaps(a.PriorityDistribution, b.PriorityDistribution)
	issueDist := mergeIntMaps(a.IssueDistribution, b.IssueDistribution)

	peak := a.MemoryStats.PeakMemoryBytes
	if b.MemoryStats.PeakMemoryBytes > peak {
		peak = b.MemoryStats.PeakMemoryBytes
	}

	return Statistics{
		TotalDuration:           a.TotalDuration + b.TotalDuration,
		AvgFileProcessingTime:   weightedAvg(a.AvgFileProcessingTime, aFiles, b.AvgFileProcessingTime, bFiles),
		AvgEntityProcessingTime: weightedAvg(a.AvgEntityProcessingTime, aFiles, b.AvgEntityProcessingTime, bFiles),
		FeaturesPerEntity:       features,
		PriorityDistribution:    priority,
		IssueDistribution:       issueDist,
		MemoryStats: MemoryStats{
			PeakMemoryBytes:  peak,
			FinalMemoryBytes: b.MemoryStats.FinalMemoryBytes,
		},
	}
}

func mergeIntMaps(a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func mergeHealth(a, b *HealthMetrics, aw, bw int) *HealthMetrics {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &HealthMetrics{
		OverallHealthScore:    weightedAvg(a.OverallHealthScore, aw, b.OverallHealthScore, bw),
		MaintainabilityScore:  weightedAvg(a.MaintainabilityScore, aw, b.MaintainabilityScore, bw),
		TechnicalDebtRatio:    weightedAvg(a.TechnicalDebtRatio, aw, b.TechnicalDebtRatio, bw),
		ComplexityScore:       weightedAvg(a.ComplexityScore, aw, b.ComplexityScore, bw),
		StructureQualityScore: weightedAvg(a.StructureQualityScore, aw, b.StructureQualityScore, bw),
		DocHealthScore:        weightedAvg(a.DocHealthScore, aw, b.DocHealthScore, bw),
	}
}

// mergeStructureResults unions two structure passes' node maps and cycles
// (a later duplicate path simply overwrites the earlier node, since the two
// sides are expected to analyze disjoint roots) and re-derives
// StructureQualityScore as a weighted average by node count.
func mergeStructureResults(a, b structure.Results) structure.Results {
	if !a.Enabled {
		return b
	}
	if !b.Enabled {
		return a
	}
	nodes := make(map[string]structure.NodeResult, len(a.Nodes)+len(b.Nodes))
	for k, v := range a.Nodes {
		nodes[k] = v
	}
	for k, v := range b.Nodes {
		nodes[k] = v
	}
	pkgNodes := make(map[string]structure.NodeResult, len(a.PackageNodes)+len(b.PackageNodes))
	for k, v := range a.PackageNodes {
		pkgNodes[k] = v
	}
	for k, v := range b.PackageNodes {
		pkgNodes[k] = v
	}
	return structure.Results{
		Enabled:               true,
		FilesAnalyzed:         a.FilesAnalyzed + b.FilesAnalyzed,
		Nodes:                 nodes,
		PackageNodes:          pkgNodes,
		Cycles:                append(append([][]string{}, a.Cycles...), b.Cycles...),
		PackageCycles:         append(append([][]string{}, a.PackageCycles...), b.PackageCycles...),
		Issues:                append(append([]structure.Issue{}, a.Issues...), b.Issues...),
		StructureQualityScore: weightedAvg(a.StructureQualityScore, len(a.Nodes), b.StructureQualityScore, len(b.Nodes)),
	}
}

// mergeCohesionResults unions two cohesion passes' per-file/folder scores
// and re-derives the average-cohesion figures by file count.
func mergeCohesionResults(a, b cohesion.Results) cohesion.Results {
	if !a.Enabled {
		return b
	}
	if !b.Enabled {
		return a
	}
	files := make(map[string]cohesion.FileCohesionScore, len(a.FileScores)+len(b.FileScores))
	for k, v := range a.FileScores {
		files[k] = v
	}
	for k, v := range b.FileScores {
		files[k] = v
	}
	folders := make(map[string]cohesion.FolderCohesionScore, len(a.FolderScores)+len(b.FolderScores))
	for k, v := range a.FolderScores {
		folders[k] = v
	}
	for k, v := range b.FolderScores {
		folders[k] = v
	}
	return cohesion.Results{
		Enabled:             true,
		FileScores:          files,
		FolderScores:        folders,
		Issues:              append(append([]cohesion.Issue{}, a.Issues...), b.Issues...),
		IssuesCount:         a.IssuesCount + b.IssuesCount,
		FilesAnalyzed:       a.FilesAnalyzed + b.FilesAnalyzed,
		AverageCohesion:     weightedAvg(a.AverageCohesion, a.FilesAnalyzed, b.AverageCohesion, b.FilesAnalyzed),
		AverageDocAlignment: weightedAvg(a.AverageDocAlignment, a.FilesAnalyzed, b.AverageDocAlignment, b.FilesAnalyzed),
	}
}
