package interner

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternReturnsSameSymbolForSameString(t *testing.T) {
	in := New()
	a := in.Intern("hello")
	b := in.Intern("world")
	c := in.Intern("hello")

	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "hello", in.Resolve(a))
	assert.Equal(t, "world", in.Resolve(b))
	assert.Equal(t, 2, in.Len())
}

func TestLookupDoesNotInsert(t *testing.T) {
	in := New()
	_, ok := in.Lookup("never interned")
	assert.False(t, ok)
	assert.Equal(t, 0, in.Len())

	sym := in.Intern("now interned")
	found, ok := in.Lookup("now interned")
	assert.True(t, ok)
	assert.Equal(t, sym, found)
}

func TestInternIsSafeForConcurrentUse(t *testing.T) {
	in := New()
	var wg sync.WaitGroup
	results := make([]Symbol, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = in.Intern("shared")
		}(i)
	}
	wg.Wait()

	for _, sym := range results {
		assert.Equal(t, results[0], sym)
	}
	assert.Equal(t, 1, in.Len())
}

func TestGlobalHelpersShareOneInterner(t *testing.T) {
	sym := Intern("global_test_value")
	assert.Equal(t, "global_test_value", Resolve(sym))
	assert.Equal(t, sym, Intern("global_test_value"))
}
