package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileMapReaderReadFileAndLanguage(t *testing.T) {
	r := newFileMapReader()
	r.put("a/b.py", []byte("print(1)"), "python")

	content, err := r.ReadFile("a/b.py")
	assert.NoError(t, err)
	assert.Equal(t, "print(1)", string(content))

	lang, ok := r.Language("a/b.py")
	assert.True(t, ok)
	assert.Equal(t, "python", lang)
}

func TestFileMapReaderLanguageMissing(t *testing.T) {
	r := newFileMapReader()
	_, ok := r.Language("missing.py")
	assert.False(t, ok)
}

func TestFileMapReaderSatisfiesAllThreeSourceReaders(t *testing.T) {
	// Compile-time assertions: fileMapReader must structurally satisfy every
	// stage's SourceReader. These would fail to compile, not fail at runtime,
	// if the shapes ever diverged.
	var _ interface {
		ReadFile(path string) ([]byte, error)
		Language(path string) (string, bool)
	} = newFileMapReader()
}
