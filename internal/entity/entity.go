// Package entity defines the extractor contract, entity model, and feature-vector
// container shared by every detector.
package entity

import (
	"fmt"
	"math"
	"sort"

	"github.com/sibyllinesoft/valknut/internal/interner"
)

// Kind enumerates the recognized code-entity kinds.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindInterface Kind = "interface"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
	KindModule    Kind = "module"
)

// LineRange is an inclusive 1-based line span.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ByteRange is a half-open byte span into the entity's source file.
type ByteRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CodeEntity is a single extracted unit of code: a function, a class, a variable
// declaration, and so on. Its id has the stable form "<file>:<kind>:<counter>".
type CodeEntity struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Name       string         `json:"name"`
	FilePath   string         `json:"file_path"`
	LineRange  LineRange      `json:"line_range"`
	SourceCode string         `json:"source_code"`
	ByteRange  ByteRange      `json:"byte_range"`
	ASTKind    string         `json:"ast_kind"`
	Metadata   map[string]any `json:"metadata"`
}

// NewID builds a stable entity id of the form "<file>:<kind>:<counter>".
func NewID(filePath string, kind Kind, counter int) string {
	return fmt.Sprintf("%s:%s:%d", filePath, kind, counter)
}

// IDCounter assigns sequential per-file, per-kind counters so adapter code never
// has to thread a shared counter by hand.
type IDCounter struct {
	counts map[string]int
}

// NewIDCounter creates an empty counter.
func NewIDCounter() *IDCounter {
	return &IDCounter{counts: make(map[string]int)}
}

// Next returns the next id for filePath/kind and advances the counter.
// filePath is interned here since every entity extracted from the same file
// shares the identical path string, making it the hottest repeated value on
// this path.
func (c *IDCounter) Next(filePath string, kind Kind) string {
	filePath = interner.Resolve(interner.Intern(filePath))
	key := filePath + "\x00" + string(kind)
	n := c.counts[key]
	c.counts[key] = n + 1
	id := NewID(filePath, kind, n)
	interner.Intern(id)
	return id
}

// DataType is the declared type of a FeatureDefinition's value.
type DataType string

const (
	DataTypeFloat DataType = "float"
	DataTypeInt   DataType = "int"
	DataTypeBool  DataType = "bool"
)

// FeatureDefinition is an immutable description of one scalar feature, registered
// once at extractor construction (invariant 2).
type FeatureDefinition struct {
	Name           string
	Description    string
	DataType       DataType
	MinValue       *float64
	MaxValue       *float64
	DefaultValue   float64
	HigherIsWorse  bool
}

// Clamp implements the invariant: NaN/Inf map to DefaultValue; otherwise the value
// is clamped to [MinValue, MaxValue] where those bounds are present.
func (fd FeatureDefinition) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return fd.DefaultValue
	}
	if math.IsInf(v, 1) {
		if fd.MaxValue != nil {
			return *fd.MaxValue
		}
		return v
	}
	if math.IsInf(v, -1) {
		if fd.MinValue != nil {
			return *fd.MinValue
		}
		return v
	}
	if fd.MinValue != nil && v < *fd.MinValue {
		v = *fd.MinValue
	}
	if fd.MaxValue != nil && v > *fd.MaxValue {
		v = *fd.MaxValue
	}
	return v
}

// FeatureVector holds every raw and normalized feature value for one entity.
type FeatureVector struct {
	EntityID   string
	Raw        map[string]float64
	Normalized map[string]float64
	Metadata   map[string]any
}

// NewFeatureVector creates an empty vector for entityID.
func NewFeatureVector(entityID string) *FeatureVector {
	return &FeatureVector{
		EntityID:   entityID,
		Raw:        make(map[string]float64),
		Normalized: make(map[string]float64),
		Metadata:   make(map[string]any),
	}
}

// Set records a raw feature value. name is interned so the same feature name
// recurring across every entity in a run shares one string.
func (fv *FeatureVector) Set(name string, value float64) {
	fv.Raw[interner.Resolve(interner.Intern(name))] = value
}

// SetNormalized records a normalized ([0,1]) feature value.
func (fv *FeatureVector) SetNormalized(name string, value float64) {
	fv.Normalized[name] = value
}

// FeatureNames returns the raw feature names present, sorted for determinism.
func (fv *FeatureVector) FeatureNames() []string {
	names := make([]string, 0, len(fv.Raw))
	for name := range fv.Raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry owns the set of FeatureDefinitions an extractor contributes.
type Registry struct {
	defs map[string]FeatureDefinition
	order []string
}

// NewRegistry creates an empty feature registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]FeatureDefinition)}
}

// Register adds fd, keyed by its Name. Registering the same name twice overwrites
// but preserves original position.
func (r *Registry) Register(fd FeatureDefinition) {
	if _, exists := r.defs[fd.Name]; !exists {
		r.order = append(r.order, fd.Name)
	}
	r.defs[fd.Name] = fd
}

// Get returns the definition for name, if registered.
func (r *Registry) Get(name string) (FeatureDefinition, bool) {
	fd, ok := r.defs[name]
	return fd, ok
}

// Names returns every registered feature name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
