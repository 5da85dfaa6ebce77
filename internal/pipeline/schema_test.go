package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultsSchemaDerives(t *testing.T) {
	schema, err := ResultsSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)
}

func TestValidateResultsAcceptsEmptyResults(t *testing.T) {
	err := ValidateResults(emptyResults())
	assert.NoError(t, err)
}
