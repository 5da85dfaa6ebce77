package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindConstructorsCarryContext(t *testing.T) {
	cause := errors.New("boom")

	io := IO("/tmp/x.go", cause)
	assert.Equal(t, KindIO, io.Kind)
	assert.Equal(t, "/tmp/x.go", io.Path)
	assert.True(t, io.Recoverable())
	assert.Contains(t, io.Error(), "/tmp/x.go")

	stage := Pipeline("lsh", cause)
	assert.Equal(t, "lsh", stage.Stage)
	assert.True(t, stage.Recoverable())
	assert.Contains(t, stage.Error(), "lsh")

	cfg := Configuration("bad num_bands")
	assert.False(t, cfg.Recoverable())
}

func TestUnwrapParticipatesInStdlibErrors(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Parse("a.py", cause)

	require.ErrorIs(t, wrapped, cause)

	var ve *ValknutError
	require.ErrorAs(t, wrapped, &ve)
	assert.Equal(t, KindParse, ve.Kind)
}

func TestMultiErrorFiltersNil(t *testing.T) {
	me := NewMultiError([]error{nil, errors.New("a"), nil, errors.New("b")})
	assert.Len(t, me.Errors, 2)
	assert.Contains(t, me.Error(), "2 errors")

	empty := NewMultiError(nil)
	assert.Equal(t, "no errors", empty.Error())

	single := NewMultiError([]error{errors.New("solo")})
	assert.Equal(t, "solo", single.Error())
}
