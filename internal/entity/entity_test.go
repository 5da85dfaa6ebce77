package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewIDFormat(t *testing.T) {
	assert.Equal(t, "a.go:function:3", NewID("a.go", KindFunction, 3))
}

func TestIDCounterIsPerFileAndKind(t *testing.T) {
	c := NewIDCounter()
	assert.Equal(t, "a.go:function:0", c.Next("a.go", KindFunction))
	assert.Equal(t, "a.go:function:1", c.Next("a.go", KindFunction))
	assert.Equal(t, "a.go:class:0", c.Next("a.go", KindClass))
	assert.Equal(t, "b.go:function:0", c.Next("b.go", KindFunction))
}

func TestClampHandlesNaNAndInf(t *testing.T) {
	fd := FeatureDefinition{MinValue: floatPtr(0), MaxValue: floatPtr(10), DefaultValue: 5}

	assert.Equal(t, 5.0, fd.Clamp(math.NaN()))
	assert.Equal(t, 10.0, fd.Clamp(math.Inf(1)))
	assert.Equal(t, 0.0, fd.Clamp(math.Inf(-1)))
	assert.Equal(t, 7.0, fd.Clamp(7))
	assert.Equal(t, 10.0, fd.Clamp(99))
	assert.Equal(t, 0.0, fd.Clamp(-5))
}

func TestFeatureVectorFeatureNamesSorted(t *testing.T) {
	fv := NewFeatureVector("e1")
	fv.Set("zeta", 1)
	fv.Set("alpha", 2)

	assert.Equal(t, []string{"alpha", "zeta"}, fv.FeatureNames())
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(FeatureDefinition{Name: "cyclomatic"})
	r.Register(FeatureDefinition{Name: "cognitive"})
	r.Register(FeatureDefinition{Name: "cyclomatic", Description: "updated"})

	assert.Equal(t, []string{"cyclomatic", "cognitive"}, r.Names())
	fd, ok := r.Get("cyclomatic")
	assert.True(t, ok)
	assert.Equal(t, "updated", fd.Description)
}
