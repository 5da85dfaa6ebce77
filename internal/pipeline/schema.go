package pipeline

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// resultsSchema is built once and reused by every caller that wants to
// validate an AnalysisResults payload against its own JSON Schema (e.g. a
// CLI's --validate flag, or a round-trip test), rather than re-deriving the
// schema from the struct on every call.
var resultsSchema *jsonschema.Schema

// ResultsSchema derives (and caches) the JSON Schema for AnalysisResults via
// reflection over its json tags.
func ResultsSchema() (*jsonschema.Schema, error) {
	if resultsSchema != nil {
		return resultsSchema, nil
	}
	s, err := jsonschema.For[AnalysisResults](nil)
	if err != nil {
		return nil, err
	}
	resultsSchema = s
	return s, nil
}

// ValidateResults marshals res to JSON and checks it against its own derived
// schema, catching a field renamed or dropped without updating both sides in
// lockstep.
func ValidateResults(res *AnalysisResults) error {
	schema, err := ResultsSchema()
	if err != nil {
		return err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return err
	}
	return resolved.Validate(instance)
}
