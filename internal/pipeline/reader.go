package pipeline

import "path/filepath"

// fileMapReader is an in-memory SourceReader over already-read file
// contents, satisfying internal/structure.SourceReader,
// internal/cohesion.SourceReader, and internal/coverage.SourceReader
// structurally (all three declare the identical two-method shape) so one
// concrete reader backs every stage without re-reading the filesystem.
type fileMapReader struct {
	content  map[string][]byte
	language map[string]string
}

func newFileMapReader() *fileMapReader {
	return &fileMapReader{content: make(map[string][]byte), language: make(map[string]string)}
}

func (r *fileMapReader) put(path string, content []byte, language string) {
	r.content[path] = content
	r.language[path] = language
}

func (r *fileMapReader) ReadFile(path string) ([]byte, error) {
	return r.content[path], nil
}

func (r *fileMapReader) Language(path string) (string, bool) {
	if lang, ok := r.language[path]; ok {
		return lang, true
	}
	lang, ok := r.language[filepath.ToSlash(path)]
	return lang, ok
}
