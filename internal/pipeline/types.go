// Package pipeline is the orchestrator of the analysis run: it discovers
// files, builds the shared AST cache, fans the cache into the independent
// detector stages, scores the resulting feature vectors, and aggregates
// everything into one AnalysisResults value.
//
// The stage-concurrency shape — an errgroup.WithContext bounded by SetLimit,
// one goroutine per independent unit of work, context-cancellation checked at
// the top of each per-file read goroutine — carries an existing integration-test pattern
// for errgroup usage into production code.
package pipeline

import (
	"github.com/sibyllinesoft/valknut/internal/clone"
	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/coverage"
	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/structure"
)

// Summary is the result object's "summary" block.
type Summary struct {
	FilesProcessed      int      `json:"files_processed"`
	EntitiesAnalyzed    int      `json:"entities_analyzed"`
	RefactoringNeeded   int      `json:"refactoring_needed"`
	HighPriority        int      `json:"high_priority"`
	Critical            int      `json:"critical"`
	AvgRefactoringScore float64  `json:"avg_refactoring_score"`
	CodeHealthScore     float64  `json:"code_health_score"`
	TotalFiles          int      `json:"total_files"`
	TotalEntities       int      `json:"total_entities"`
	TotalLinesOfCode    int      `json:"total_lines_of_code"`
	Languages           []string `json:"languages"`
	TotalIssues         int      `json:"total_issues"`
	HighPriorityIssues  int      `json:"high_priority_issues"`
	CriticalIssues      int      `json:"critical_issues"`
	DocHealthScore      float64  `json:"doc_health_score"`
	DocIssueCount       int      `json:"doc_issue_count"`
}

// StageResultsBundle holds the raw result of every independent detector
// stage, as the result object's "passes" field. A disabled or skipped stage
// carries its own zero-value/disabled result rather than a nil pointer, so
// downstream JSON serialization is uniform.
type StageResultsBundle struct {
	Structure    structure.Results     `json:"structure"`
	Coverage     []coverage.CoveragePack `json:"coverage"`
	Complexity   []complexity.Metrics  `json:"complexity"`
	Refactoring  []refactor.Issue      `json:"refactoring"`
	Impact       []refactor.Suggestion `json:"impact"`
	LSH          []*clone.Candidate    `json:"lsh"`
	Cohesion     cohesion.Results      `json:"cohesion"`
}

// MemoryStats is the peak/final memory block of the "statistics" section.
type MemoryStats struct {
	PeakMemoryBytes   uint64  `json:"peak_memory_bytes"`
	FinalMemoryBytes  uint64  `json:"final_memory_bytes"`
	EfficiencyScore   float64 `json:"efficiency_score"`
}

// Statistics is the result object's "statistics" block.
type Statistics struct {
	RunID                     string             `json:"run_id"`
	TotalDuration             float64            `json:"total_duration"`
	AvgFileProcessingTime     float64            `json:"avg_file_processing_time"`
	AvgEntityProcessingTime   float64            `json:"avg_entity_processing_time"`
	FeaturesPerEntity         map[string]float64 `json:"features_per_entity"`
	PriorityDistribution      map[string]int     `json:"priority_distribution"`
	IssueDistribution         map[string]int     `json:"issue_distribution"`
	MemoryStats               MemoryStats        `json:"memory_stats"`
}

// HealthMetrics is the "health_metrics" block, derived in computeHealth from
// the weighted health formula.
type HealthMetrics struct {
	OverallHealthScore    float64 `json:"overall_health_score"`
	MaintainabilityScore  float64 `json:"maintainability_score"`
	TechnicalDebtRatio    float64 `json:"technical_debt_ratio"`
	ComplexityScore       float64 `json:"complexity_score"`
	StructureQualityScore float64 `json:"structure_quality_score"`
	DocHealthScore        float64 `json:"doc_health_score"`
}

// Violation is one failed quality gate, in {rule, severity, recommended_action} shape.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Action   string `json:"recommended_action"`
}

// QualityGateResult is the pass/fail verdict for a quality-gate check.
type QualityGateResult struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

// QualityGates are the configurable thresholds a quality-gate check evaluates.
// There is no dedicated config section for these upstream, so these are plain
// Go defaults a caller overrides explicitly, following the same
// package-local-default style as internal/complexity.Thresholds.
type QualityGates struct {
	MinMaintainability   float64
	MaxComplexity        float64
	MaxTechnicalDebtRatio float64
	MaxCriticalIssues    int
	MaxHighPriorityIssues int
	MinDocHealth         float64
}

// DefaultQualityGates are permissive defaults: every gate passes unless the
// caller tightens it.
func DefaultQualityGates() QualityGates {
	return QualityGates{
		MinMaintainability:    0,
		MaxComplexity:         100,
		MaxTechnicalDebtRatio: 1,
		MaxCriticalIssues:     1 << 30,
		MaxHighPriorityIssues: 1 << 30,
		MinDocHealth:          0,
	}
}

// AnalysisResults is the root result object returned by a pipeline run.
type AnalysisResults struct {
	Summary               Summary                  `json:"summary"`
	Passes                StageResultsBundle       `json:"passes"`
	RefactoringCandidates []refactor.Candidate     `json:"refactoring_candidates"`
	Statistics            Statistics               `json:"statistics"`
	HealthMetrics         *HealthMetrics           `json:"health_metrics"`
	CloneAnalysis         *CloneAnalysisResults    `json:"clone_analysis"`
	CoveragePacks         []coverage.CoveragePack  `json:"coverage_packs"`
	Warnings              []string                 `json:"warnings"`
	CodeDictionary        map[string]string        `json:"code_dictionary"`
	QualityGate           QualityGateResult        `json:"quality_gate"`
}

// CloneAnalysisResults is the clone-detector summary: candidates remaining
// after denoising, the highest similarity seen, and a verification block
// with the count of emitted pairs (scored by APTED or the MinHash fallback).
type CloneAnalysisResults struct {
	CandidatesAfterDenoising int          `json:"candidates_after_denoising"`
	MaxSimilarity            float64      `json:"max_similarity"`
	Verification             Verification `json:"verification"`
	PhaseCounts              clone.PhaseCounts `json:"phase_counts"`
}

// Verification is the APTED-or-fallback verification summary attached to
// every clone-analysis result.
type Verification struct {
	PairsScored int `json:"pairs_scored"`
}
