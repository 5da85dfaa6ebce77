package astsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/langregistry"
)

func newServiceT(t *testing.T) *Service {
	t.Helper()
	reg, err := langregistry.NewDefault()
	require.NoError(t, err)
	return New(reg)
}

func TestGetASTCachesByContentHash(t *testing.T) {
	svc := newServiceT(t)
	source := []byte("def f():\n    pass\n")

	ct1, err := svc.GetAST("a.py", ".py", source)
	require.NoError(t, err)
	ct2, err := svc.GetAST("a.py", ".py", source)
	require.NoError(t, err)

	assert.Same(t, ct1, ct2)
	assert.Equal(t, 1, svc.Size())
}

func TestGetASTDistinguishesDifferentContent(t *testing.T) {
	svc := newServiceT(t)
	_, err := svc.GetAST("a.py", ".py", []byte("x = 1\n"))
	require.NoError(t, err)
	_, err = svc.GetAST("a.py", ".py", []byte("x = 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, svc.Size())
}

func TestGetASTRejectsUnknownExtension(t *testing.T) {
	svc := newServiceT(t)
	_, err := svc.GetAST("a.xyz", ".xyz", []byte("nonsense"))
	require.Error(t, err)
}

func TestForEntityFindsIfStatementAtDepthZero(t *testing.T) {
	svc := newServiceT(t)
	source := []byte("def f(x):\n    if x:\n        return 1\n    return 0\n")
	ct, err := svc.GetAST("a.py", ".py", source)
	require.NoError(t, err)

	ctx := svc.CreateContext(ct, "a.py")
	root := ctx.Tree.RootNode()
	points := ForEntity(ctx, "python", root.StartByte(), root.EndByte())

	require.Len(t, points, 1)
	assert.Equal(t, DecisionIf, points[0].Kind)
	assert.Equal(t, 0, points[0].Depth)
}

func TestCyclomaticAndCognitiveFromPoints(t *testing.T) {
	points := []DecisionPoint{{Depth: 0}, {Depth: 1}, {Depth: 2}}
	assert.Equal(t, 4, CyclomaticFromPoints(points))
	assert.Equal(t, (1+0)+(1+1)+(1+2), CognitiveFromPoints(points))
	assert.Equal(t, 2, MaxNestingDepth(points))
}
