// Package astsvc is the shared AST service: it parses a file at most once
// per (path, content hash), caches the resulting tree, and enumerates decision
// points for the complexity detector over any cached tree regardless of language.
//
// The get-or-compute collapsing of concurrent identical requests uses
// golang.org/x/sync/singleflight so two goroutines racing to parse the same
// file never duplicate the work; the cache key is an xxhash of the file
// content, content-hash keyed and read-mostly after population, so two calls
// for the same (path, content) always share one parse.
package astsvc

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/singleflight"

	verrors "github.com/sibyllinesoft/valknut/internal/errors"
	"github.com/sibyllinesoft/valknut/internal/langregistry"
)

// CacheKey identifies one cached parse.
type CacheKey struct {
	Path         string
	ContentHash  uint64
}

// CachedTree is a shared, immutable parse result. Multiple callers for the same
// CacheKey receive the identical pointer.
type CachedTree struct {
	Key      CacheKey
	Language string
	Tree     *tree_sitter.Tree
	Source   []byte
}

// Context is the light handle downstream stages traverse: the tree plus the
// source slice it was parsed from.
type Context struct {
	Tree   *tree_sitter.Tree
	Source []byte
	Path   string
}

// Service owns the AST cache for one pipeline run. Cache eviction policy: none —
// trees live as long as the Service, i.e. as long as the run.
type Service struct {
	registry *langregistry.Registry
	group    singleflight.Group

	mu    sync.RWMutex
	cache map[CacheKey]*CachedTree
}

// New creates an AST service backed by registry.
func New(registry *langregistry.Registry) *Service {
	return &Service{registry: registry, cache: make(map[CacheKey]*CachedTree)}
}

func hashContent(source []byte) uint64 {
	return xxhash.Sum64(source)
}

// GetAST returns the cached tree for (path, content), parsing it only if this is
// the first request for that exact content hash. Concurrent identical requests
// collapse onto a single parse via singleflight.
func (s *Service) GetAST(path string, ext string, source []byte) (*CachedTree, error) {
	key := CacheKey{Path: path, ContentHash: hashContent(source)}

	s.mu.RLock()
	if ct, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return ct, nil
	}
	s.mu.RUnlock()

	groupKey := fmt.Sprintf("%s\x00%x", path, key.ContentHash)
	v, err, _ := s.group.Do(groupKey, func() (any, error) {
		s.mu.RLock()
		if ct, ok := s.cache[key]; ok {
			s.mu.RUnlock()
			return ct, nil
		}
		s.mu.RUnlock()

		adapter, ok := s.registry.Lookup(ext)
		if !ok {
			return nil, verrors.Parse(path, fmt.Errorf("no adapter registered for extension %q", ext))
		}
		tree, err := adapter.ParseTree(source)
		if err != nil {
			return nil, err
		}
		ct := &CachedTree{Key: key, Language: adapter.Name(), Tree: tree, Source: source}

		s.mu.Lock()
		s.cache[key] = ct
		s.mu.Unlock()
		return ct, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CachedTree), nil
}

// CreateContext builds a traversal handle over a cached tree.
func (s *Service) CreateContext(ct *CachedTree, path string) *Context {
	return &Context{Tree: ct.Tree, Source: ct.Source, Path: path}
}

// Size returns the number of distinct (path, content hash) entries cached so far.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
