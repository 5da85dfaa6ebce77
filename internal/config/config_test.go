package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultPassesValidation(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestRoundTripPreservesValues(t *testing.T) {
	original := Default()
	original.LSH.NumHashes = 256
	original.LSH.NumBands = 16
	original.Scoring.NormalizationScheme = "robust"

	bytes, err := original.Marshal()
	require.NoError(t, err)

	var restored Config
	require.NoError(t, yaml.Unmarshal(bytes, &restored))

	assert.Equal(t, original.LSH.NumHashes, restored.LSH.NumHashes)
	assert.Equal(t, original.LSH.NumBands, restored.LSH.NumBands)
	assert.Equal(t, original.Scoring.NormalizationScheme, restored.Scoring.NormalizationScheme)
	assert.NoError(t, restored.Validate())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valknut.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  bogus_field: true\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valknut.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lsh:\n  similarity_threshold: 0.9\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.LSH.SimilarityThreshold)
	assert.Equal(t, 128, cfg.LSH.NumHashes, "unset fields keep the default")
}

func TestValidateRejectsNumHashesNotDivisibleByNumBands(t *testing.T) {
	cfg := Default()
	cfg.LSH.NumHashes = 100
	cfg.LSH.NumBands = 7

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_bands")
}

func TestValidateRejectsOutOfRangeConfidence(t *testing.T) {
	cfg := Default()
	cfg.Analysis.ConfidenceThreshold = 1.5

	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownNormalizationScheme(t *testing.T) {
	cfg := Default()
	cfg.Scoring.NormalizationScheme = "nonsense"

	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEnabledLanguageWithNoExtensions(t *testing.T) {
	cfg := Default()
	cfg.Languages["ruby"] = Language{Enabled: true}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ruby")
}

func TestValidateRejectsZeroCohesionDimensionWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Cohesion.Enabled = true
	cfg.Cohesion.Embedding.Dimension = 0

	require.Error(t, cfg.Validate())
}
