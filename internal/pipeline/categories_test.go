package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sibyllinesoft/valknut/internal/scoring"
)

func TestCategoryOfKnownFeatures(t *testing.T) {
	cases := map[string]scoring.FeatureCategory{
		"cyclomatic_complexity": scoring.CategoryComplexity,
		"fan_in":                scoring.CategoryGraph,
		"cycle_membership":      scoring.CategoryStructure,
		"coverage_gap_loc":      scoring.CategoryCoverage,
		"cohesion_score":        scoring.CategoryStyle,
	}
	for name, want := range cases {
		assert.Equal(t, want, categoryOf(name), name)
	}
}

func TestCategoryOfUnknownDefaultsToStyle(t *testing.T) {
	assert.Equal(t, scoring.CategoryStyle, categoryOf("made_up_feature_name"))
}
