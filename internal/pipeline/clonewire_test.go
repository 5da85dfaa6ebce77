package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/clone"
	"github.com/sibyllinesoft/valknut/internal/langregistry"
)

func newASTServiceT(t *testing.T) *astsvc.Service {
	t.Helper()
	reg, err := langregistry.NewDefault()
	require.NoError(t, err)
	return astsvc.New(reg)
}

func TestPreorderLabelsBoundedToByteRange(t *testing.T) {
	svc := newASTServiceT(t)
	source := []byte("def f(x):\n    if x:\n        return 1\n    return 0\n")
	ct, err := svc.GetAST("a.py", ".py", source)
	require.NoError(t, err)
	ctx := svc.CreateContext(ct, "a.py")

	full := preorderLabels(ctx, 0, uint(len(source)))
	assert.NotEmpty(t, full)

	// A sub-range covering only the function header produces a strict
	// subset of labels, never the whole tree.
	header := preorderLabels(ctx, 0, uint(len("def f(x):")))
	assert.Less(t, len(header), len(full))
}

func TestAdapterSupportPreorderLabelsLooksUpByDocumentID(t *testing.T) {
	support := &adapterSupport{labels: map[string][]string{"doc-1": {"module", "function_definition"}}}
	got := support.PreorderLabels(&clone.Document{ID: "doc-1"})
	assert.Equal(t, []string{"module", "function_definition"}, got)

	missing := support.PreorderLabels(&clone.Document{ID: "unknown"})
	assert.Nil(t, missing)
}
