package pipeline

import "github.com/sibyllinesoft/valknut/internal/scoring"

// featureCategories classifies every feature name this package's detectors
// emit into one of scoring's five categories. scoring.Score takes this
// classification as a caller-supplied callback rather than owning it
// itself, so the orchestrator is the natural owner: it's the only
// component that sees every detector's feature names at once.
var featureCategories = map[string]scoring.FeatureCategory{
	// Complexity Detector
	"cyclomatic_complexity": scoring.CategoryComplexity,
	"cognitive_complexity":  scoring.CategoryComplexity,
	"max_nesting_depth":     scoring.CategoryComplexity,
	"halstead_effort":       scoring.CategoryComplexity,
	"halstead_volume":       scoring.CategoryComplexity,
	"lines_of_code":         scoring.CategoryComplexity,
	"technical_debt_score":  scoring.CategoryComplexity,
	"maintainability_index": scoring.CategoryComplexity,
	"parameter_count":       scoring.CategoryComplexity,

	// Structure Detector: both the "graph" and "structure" categories trace
	// to this package. Betweenness/closeness/instability are the
	// import-graph-shaped features scoring.CategoryGraph names, while cycle
	// membership is the package/module-shape concern CategoryStructure
	// names.
	"betweenness_centrality": scoring.CategoryGraph,
	"closeness_centrality":   scoring.CategoryGraph,
	"fan_in":                 scoring.CategoryGraph,
	"fan_out":                scoring.CategoryGraph,
	"instability":            scoring.CategoryGraph,
	"cycle_membership":       scoring.CategoryStructure,

	// Coverage Detector
	"coverage_gap_loc":        scoring.CategoryCoverage,
	"coverage_gap_complexity": scoring.CategoryCoverage,
	"coverage_gap_fan_in":     scoring.CategoryCoverage,

	// Cohesion Detector has no dedicated category among scoring's five; it
	// is a style concern (naming/documentation/topic-unity), so it falls to
	// the "style" default along with anything this map doesn't name.
	"cohesion_score":     scoring.CategoryStyle,
	"doc_alignment":      scoring.CategoryStyle,
	"outlier_severity":   scoring.CategoryStyle,
}

// categoryOf is the classifier scoring.Score requires. Unknown features
// default to CategoryStyle, matching FeatureCategory's documented default.
func categoryOf(name string) scoring.FeatureCategory {
	if cat, ok := featureCategories[name]; ok {
		return cat
	}
	return scoring.CategoryStyle
}
