// Package errors defines the valknut error taxonomy.
//
// Every kind wraps its cause with github.com/pkg/errors so a stack trace survives
// the wrap; Unwrap still participates in stdlib errors.Is/errors.As.
package errors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Kind is one of the seven error kinds.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindIO            Kind = "io"
	KindParse         Kind = "parse"
	KindPipeline      Kind = "pipeline"
	KindValidation    Kind = "validation"
	KindTimeout       Kind = "timeout"
	KindCache         Kind = "cache"
)

// ValknutError is the common shape of every error kind: a kind, context sufficient
// to build a warning entry, and an underlying cause.
type ValknutError struct {
	Kind       Kind
	Stage      string // set for PipelineError
	Path       string // file path, when applicable
	Underlying error
	Timestamp  time.Time
}

func newErr(kind Kind, underlying error) *ValknutError {
	return &ValknutError{
		Kind:       kind,
		Underlying: errors.WithStack(underlying),
		Timestamp:  time.Now(),
	}
}

// Configuration wraps a validation failure; unrecoverable, surfaced before any work.
func Configuration(msg string) *ValknutError {
	return newErr(KindConfiguration, errors.New(msg))
}

// IO wraps a missing/unreadable/oversized path; recovered locally by skipping the file.
func IO(path string, cause error) *ValknutError {
	e := newErr(KindIO, cause)
	e.Path = path
	return e
}

// Parse wraps an adapter failure to produce a tree; affects only that file's entities.
func Parse(path string, cause error) *ValknutError {
	e := newErr(KindParse, cause)
	e.Path = path
	return e
}

// Pipeline wraps a stage abort; other stages continue.
func Pipeline(stage string, cause error) *ValknutError {
	e := newErr(KindPipeline, cause)
	e.Stage = stage
	return e
}

// Validation wraps a feature value that fell outside its declared range after clamping.
func Validation(msg string) *ValknutError {
	return newErr(KindValidation, errors.New(msg))
}

// Timeout wraps a per-file or total timeout; an empty path marks the total
// timeout of the run.
func Timeout(path string, cause error) *ValknutError {
	e := newErr(KindTimeout, cause)
	e.Path = path
	return e
}

// Cache wraps a corrupt or absent stop-motif cache; caller should rebuild.
func Cache(cause error) *ValknutError {
	return newErr(KindCache, cause)
}

func (e *ValknutError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s error in stage %s: %v", e.Kind, e.Stage, e.Underlying)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Underlying)
}

func (e *ValknutError) Unwrap() error {
	return e.Underlying
}

// Recoverable reports whether the pipeline may continue after this error; only
// Configuration and a total-timeout Timeout abort the whole run.
func (e *ValknutError) Recoverable() bool {
	if e.Kind == KindTimeout && e.Path == "" {
		return false
	}
	return e.Kind != KindConfiguration
}

// Warning renders the error as a warning string with enough context (path, stage,
// kind) to be actionable, for inclusion in AnalysisResults.warnings.
func (e *ValknutError) Warning() string {
	return e.Error()
}

// MultiError aggregates independent failures (e.g. per-file errors within a stage)
// without aborting the caller.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
	}
}

func (e *MultiError) Unwrap() []error {
	return e.Errors
}
