package pipeline

import (
	"fmt"

	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/structure"
)

// computeHealth derives HealthMetrics from every stage's output, per the
// weighted health formula:
//
//	overall_health = 0.28*maintainability + 0.25*structure_quality
//	               + 0.18*(100-complexity) + 0.19*(100-technical_debt)
//	               + 0.10*doc_health, clamped [0,100].
func computeHealth(metrics []complexity.Metrics, structureRes structure.Results, cohesionRes cohesion.Results, th complexity.Thresholds) *HealthMetrics {
	if len(metrics) == 0 {
		return &HealthMetrics{
			OverallHealthScore: 100, MaintainabilityScore: 100,
			StructureQualityScore: structureRes.StructureQualityScore, DocHealthScore: 100,
		}
	}

	var maintSum, debtSum, cyclomaticSum float64
	for _, m := range metrics {
		maintSum += m.MaintainabilityIndex
		debtSum += m.TechnicalDebtScore
		cyclomaticSum += float64(m.Cyclomatic)
	}
	n := float64(len(metrics))
	maintainability := maintSum / n
	technicalDebt := debtSum / n
	// complexityScore mirrors maintainability's [0,100] scale by normalizing
	// mean cyclomatic complexity against the detector's own "very high"
	// threshold, so the health formula's (100-complexity) term behaves the
	// same way the other two penalty terms do.
	avgCyclomatic := cyclomaticSum / n
	complexityScore := clampPct(avgCyclomatic / th.VeryHigh * 100)

	docHealth := docHealthScore(cohesionRes)

	overall := 0.28*maintainability + 0.25*structureRes.StructureQualityScore +
		0.18*(100-complexityScore) + 0.19*(100-technicalDebt) + 0.10*docHealth

	return &HealthMetrics{
		OverallHealthScore:    clampPct(overall),
		MaintainabilityScore:  clampPct(maintainability),
		TechnicalDebtRatio:    technicalDebt / 100,
		ComplexityScore:       complexityScore,
		StructureQualityScore: structureRes.StructureQualityScore,
		DocHealthScore:        docHealth,
	}
}

// docHealthScore derives a [0,100] documentation-health figure from the
// cohesion detector's doc-alignment findings: 100 minus the mean severity of
// every doc-related issue (DOC_MISMATCH, DOC_TOO_SHORT, DOC_GENERIC,
// DOC_OUTLIER), since those are the cohesion detector's only doc-aware
// signal and no separate documentation-audit component exists.
func docHealthScore(res cohesion.Results) float64 {
	var sum float64
	var n int
	for _, iss := range res.Issues {
		switch iss.Code {
		case cohesion.IssueDocMismatch, cohesion.IssueDocTooShort, cohesion.IssueDocGeneric, cohesion.IssueDocOutlier:
			sum += iss.Severity
			n++
		}
	}
	if n == 0 {
		return 100
	}
	return clampPct(100 - (sum/float64(n))*100)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// EvaluateQualityGates checks aggregated health/issue counts against gates,
// producing a {rule, severity, recommended_action} violation per failed gate.
func EvaluateQualityGates(h HealthMetrics, gates QualityGates, issues []refactor.Issue) QualityGateResult {
	var violations []Violation

	if h.MaintainabilityScore < gates.MinMaintainability {
		violations = append(violations, Violation{
			Rule: "Minimum maintainability score", Severity: "high",
			Action: fmt.Sprintf("raise average maintainability above %.0f", gates.MinMaintainability),
		})
	}
	if h.ComplexityScore > gates.MaxComplexity {
		violations = append(violations, Violation{
			Rule: "Maximum complexity score", Severity: "medium",
			Action: fmt.Sprintf("reduce average complexity below %.0f", gates.MaxComplexity),
		})
	}
	if h.TechnicalDebtRatio > gates.MaxTechnicalDebtRatio {
		violations = append(violations, Violation{
			Rule: "Maximum technical debt ratio", Severity: "medium",
			Action: fmt.Sprintf("reduce technical debt ratio below %.2f", gates.MaxTechnicalDebtRatio),
		})
	}
	if h.DocHealthScore < gates.MinDocHealth {
		violations = append(violations, Violation{
			Rule: "Minimum documentation health score", Severity: "low",
			Action: fmt.Sprintf("raise documentation health above %.0f", gates.MinDocHealth),
		})
	}

	critical, high := 0, 0
	for _, iss := range issues {
		if iss.Severity >= 0.85 {
			critical++
		} else if iss.Severity >= 0.7 {
			high++
		}
	}
	if critical > gates.MaxCriticalIssues {
		violations = append(violations, Violation{
			Rule: "Maximum critical issues", Severity: "critical",
			Action: "resolve critical-severity refactoring issues before merging",
		})
	}
	if high > gates.MaxHighPriorityIssues {
		violations = append(violations, Violation{
			Rule: "Maximum high-priority issues", Severity: "high",
			Action: "triage high-priority refactoring issues",
		})
	}

	return QualityGateResult{Passed: len(violations) == 0, Violations: violations}
}
