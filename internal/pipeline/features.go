package pipeline

import (
	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/entity"
	"github.com/sibyllinesoft/valknut/internal/structure"
)

// DefaultFeatureRegistry registers every feature name this package's
// detectors can contribute, following internal/entity's invariant that a
// FeatureDefinition is registered once at extractor construction. Ranges and
// higher_is_worse flags mirror each source detector's own natural scale.
func DefaultFeatureRegistry() *entity.Registry {
	reg := entity.NewRegistry()
	f := func(name string, def, min, max float64, higherIsWorse bool) {
		minV, maxV := min, max
		reg.Register(entity.FeatureDefinition{
			Name: name, DataType: entity.DataTypeFloat,
			DefaultValue: def, MinValue: &minV, MaxValue: &maxV, HigherIsWorse: higherIsWorse,
		})
	}
	f("cyclomatic_complexity", 1, 0, 1000, true)
	f("cognitive_complexity", 0, 0, 2000, true)
	f("max_nesting_depth", 0, 0, 64, true)
	f("halstead_effort", 0, 0, 1e9, true)
	f("halstead_volume", 0, 0, 1e9, true)
	f("lines_of_code", 0, 0, 100000, true)
	f("technical_debt_score", 0, 0, 100, true)
	f("maintainability_index", 100, 0, 100, false)
	f("parameter_count", 0, 0, 64, true)
	f("betweenness_centrality", 0, 0, 1, true)
	f("closeness_centrality", 0, 0, 1, true)
	f("fan_in", 0, 0, 100000, false)
	f("fan_out", 0, 0, 100000, true)
	f("instability", 0, 0, 1, true)
	f("cycle_membership", 0, 0, 1, true)
	f("coverage_gap_loc", 0, 0, 100000, true)
	f("coverage_gap_complexity", 0, 0, 1000, true)
	f("coverage_gap_fan_in", 0, 0, 100000, true)
	f("cohesion_score", 1, 0, 1, false)
	f("doc_alignment", 1, 0, 1, false)
	f("outlier_severity", 0, 0, 1, true)
	return reg
}

// cyclicPaths is the set of file paths that appear in any detected cycle,
// needed because structure.Results.Nodes carries fan-in/out/centrality but
// not cycle membership directly.
func cyclicPaths(res structure.Results) map[string]bool {
	cyclic := make(map[string]bool)
	for _, cycle := range res.Cycles {
		for _, p := range cycle {
			cyclic[p] = true
		}
	}
	return cyclic
}

// buildFeatureVector assembles one entity's raw FeatureVector from its
// complexity metrics, its file's structure-graph features, its file's
// cohesion score, and the parameter count refactor.DetectIssues already
// computed as a byproduct of the complexity pass.
func buildFeatureVector(
	e entity.CodeEntity,
	m complexity.Metrics,
	paramCount int,
	fileNode structure.NodeResult,
	inCycle bool,
	fileCohesion cohesion.FileCohesionScore,
) *entity.FeatureVector {
	fv := entity.NewFeatureVector(e.ID)
	fv.Set("cyclomatic_complexity", float64(m.Cyclomatic))
	fv.Set("cognitive_complexity", float64(m.Cognitive))
	fv.Set("max_nesting_depth", float64(m.MaxNestingDepth))
	fv.Set("halstead_effort", m.Halstead.Effort)
	fv.Set("halstead_volume", m.Halstead.Volume)
	fv.Set("lines_of_code", float64(m.LinesOfCode))
	fv.Set("technical_debt_score", m.TechnicalDebtScore)
	fv.Set("maintainability_index", m.MaintainabilityIndex)
	fv.Set("parameter_count", float64(paramCount))
	fv.Set("betweenness_centrality", fileNode.Betweenness)
	fv.Set("closeness_centrality", fileNode.Closeness)
	fv.Set("fan_in", float64(fileNode.FanIn))
	fv.Set("fan_out", float64(fileNode.FanOut))
	fv.Set("instability", fileNode.Instability)
	if inCycle {
		fv.Set("cycle_membership", 1)
	}
	fv.Set("cohesion_score", fileCohesion.Cohesion)
	if fileCohesion.DocAlignment != nil {
		fv.Set("doc_alignment", *fileCohesion.DocAlignment)
	}
	return fv
}
