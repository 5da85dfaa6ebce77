package pipeline

import (
	"sort"
	"time"

	"github.com/sibyllinesoft/valknut/internal/clone"
	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/entity"
	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/scoring"
)

// emptyResults is the all-zero, every-stage-disabled AnalysisResults
// returned when an analysis root contains no files to process.
func emptyResults() *AnalysisResults {
	return &AnalysisResults{
		Summary:        Summary{Languages: []string{}},
		CodeDictionary: buildCodeDictionary(),
		QualityGate:    QualityGateResult{Passed: true},
		HealthMetrics: &HealthMetrics{
			OverallHealthScore: 100, MaintainabilityScore: 100,
			StructureQualityScore: 100, DocHealthScore: 100,
		},
	}
}

// sortCandidates orders candidates by (priority desc, score desc, entity_id
// asc), step 8's deterministic emission order.
func sortCandidates(candidates []refactor.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		return a.EntityID < b.EntityID
	})
}

// buildSummary rolls per-entity and per-issue counts into the top-level
// Summary names.
func buildSummary(files []*fileRecord, scored []scoring.ScoringResult, issues []refactor.Issue, languages map[string]bool, totalLOC int, cohesionRes cohesion.Results) Summary {
	entityCount := 0
	for _, f := range files {
		entityCount += len(f.entities)
	}
	langs := make([]string, 0, len(languages))
	for lang := range languages {
		if lang != "" {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)

	var refactoringNeeded, highPriority, critical int
	var scoreSum float64
	for _, r := range scored {
		scoreSum += r.OverallScore
		switch r.Priority {
		case scoring.PriorityCritical:
			critical++
			highPriority++
			refactoringNeeded++
		case scoring.PriorityHigh:
			highPriority++
			refactoringNeeded++
		case scoring.PriorityMedium:
			refactoringNeeded++
		}
	}
	avgScore := 0.0
	if len(scored) > 0 {
		avgScore = scoreSum / float64(len(scored))
	}

	var highIssues, criticalIssues int
	for _, iss := range issues {
		switch {
		case iss.Severity >= 0.85:
			criticalIssues++
		case iss.Severity >= 0.7:
			highIssues++
		}
	}

	docIssues := 0
	for _, iss := range cohesionRes.Issues {
		switch iss.Code {
		case cohesion.IssueDocMismatch, cohesion.IssueDocTooShort, cohesion.IssueDocGeneric, cohesion.IssueDocOutlier:
			docIssues++
		}
	}

	return Summary{
		FilesProcessed:      len(files),
		EntitiesAnalyzed:    entityCount,
		RefactoringNeeded:   refactoringNeeded,
		HighPriority:        highPriority,
		Critical:            critical,
		AvgRefactoringScore: avgScore,
		CodeHealthScore:     100 - avgScore*100,
		TotalFiles:          len(files),
		TotalEntities:       entityCount,
		TotalLinesOfCode:    totalLOC,
		Languages:           langs,
		TotalIssues:         len(issues),
		HighPriorityIssues:  highIssues,
		CriticalIssues:      criticalIssues,
		DocHealthScore:      docHealthScore(cohesionRes),
		DocIssueCount:       docIssues,
	}
}

// buildStatistics derives timing, feature-density, and distribution figures
// from one completed run.
func buildStatistics(runID string, elapsed time.Duration, fileCount int, vectors []*entity.FeatureVector, scored []scoring.ScoringResult, issues []refactor.Issue, mem MemoryStats) Statistics {
	totalMs := float64(elapsed.Milliseconds())
	avgFile := 0.0
	if fileCount > 0 {
		avgFile = totalMs / float64(fileCount)
	}
	avgEntity := 0.0
	if len(vectors) > 0 {
		avgEntity = totalMs / float64(len(vectors))
	}

	featuresPerEntity := make(map[string]float64)
	for _, v := range vectors {
		for name := range v.Raw {
			featuresPerEntity[name]++
		}
	}
	for name := range featuresPerEntity {
		if len(vectors) > 0 {
			featuresPerEntity[name] /= float64(len(vectors))
		}
	}

	priorityDist := make(map[string]int)
	for _, r := range scored {
		priorityDist[r.Priority.String()]++
	}

	issueDist := make(map[string]int)
	for _, iss := range issues {
		issueDist[iss.Category]++
	}

	return Statistics{
		RunID:                   runID,
		TotalDuration:           totalMs,
		AvgFileProcessingTime:   avgFile,
		AvgEntityProcessingTime: avgEntity,
		FeaturesPerEntity:       featuresPerEntity,
		PriorityDistribution:    priorityDist,
		IssueDistribution:       issueDist,
		MemoryStats:             mem,
	}
}

// buildCloneAnalysis summarizes the clone detector's output into the
// top-level CloneAnalysisResults names.
func buildCloneAnalysis(candidates []*clone.Candidate, counts clone.PhaseCounts) *CloneAnalysisResults {
	maxSim := 0.0
	scored := 0
	for _, c := range candidates {
		scored++
		sim := c.WeightedJaccard
		if c.UsedAPTED && c.APTEDSimilarity > sim {
			sim = c.APTEDSimilarity
		}
		if sim > maxSim {
			maxSim = sim
		}
	}
	return &CloneAnalysisResults{
		CandidatesAfterDenoising: len(candidates),
		MaxSimilarity:            maxSim,
		Verification:             Verification{PairsScored: scored},
		PhaseCounts:               counts,
	}
}

// buildCodeDictionary supplies human-readable descriptions for the stable
// codes this repository emits across stages (complexity issue codes,
// cohesion issue codes, refactoring-suggestion types). There is no
// equivalent table anywhere in the retrieval pack; this is this repository's
// own invention; see the refactoring-suggestion constants it documents.
func buildCodeDictionary() map[string]string {
	return map[string]string{
		"CMPLX":                      "cyclomatic complexity crossed a configured threshold",
		"COH001":                     "documentation does not align with the code it describes",
		"COH002":                     "documentation comment is too short to be useful",
		"COH003":                     "documentation comment is generic boilerplate",
		"COH005":                     "file content is an outlier within its own cohesion cluster",
		refactor.ExtractMethod:        "extract a cohesive block of this method into its own method",
		refactor.ReduceComplexity:     "reduce the number of independent branches in this entity",
		refactor.SimplifyConditionals: "flatten nested conditionals with guard clauses",
		refactor.ReduceParameters:     "group related parameters into a struct or split the function",
		refactor.SplitModule:          "split this module along its weakly connected components",
		refactor.ReduceCoupling:       "reduce fan-out to other modules",
		refactor.ImproveDocumentation: "add or correct documentation for this entity",
		refactor.DeduplicateCode:      "merge this near-duplicate with its clone pair",
		refactor.AddTest:              "add a test covering this gap",
	}
}
