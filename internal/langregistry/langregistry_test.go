package langregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/entity"
)

func TestNewDefaultRegistersPrimaryAndGenericExtensions(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	for _, ext := range []string{".py", ".js", ".jsx", ".ts", ".tsx", ".rs", ".go", ".java", ".cpp", ".cs", ".php", ".zig"} {
		_, ok := r.Lookup(ext)
		assert.True(t, ok, "expected adapter for %s", ext)
	}

	_, ok := r.Lookup(".unknown")
	assert.False(t, ok)
}

func TestGoAdapterExtractsFunctionAndStruct(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)
	a, ok := r.Lookup(".go")
	require.True(t, ok)

	source := []byte(`package main

type Point struct {
	X, Y int
}

func Hello() string {
	return "hi"
}
`)
	counter := entity.NewIDCounter()
	entities, err := a.ExtractCodeEntities(source, "main.go", counter)
	require.NoError(t, err)

	var kinds []entity.Kind
	for _, e := range entities {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, entity.KindFunction)
	assert.Contains(t, kinds, entity.KindStruct)
}

func TestPythonAdapterCountsNodes(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)
	a, ok := r.Lookup(".py")
	require.True(t, ok)

	tree, err := a.ParseTree([]byte("def hello():\n    pass\n"))
	require.NoError(t, err)
	defer tree.Close()

	assert.Greater(t, a.CountASTNodes(tree), 0)
}

func TestGenericAdapterProducesSingleModuleEntity(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)
	a, ok := r.Lookup(".java")
	require.True(t, ok)

	counter := entity.NewIDCounter()
	entities, err := a.ExtractCodeEntities([]byte("class Foo {}"), "Foo.java", counter)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, entity.KindModule, entities[0].Kind)
}
