package clone

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut/internal/config"
)

func TestTokenizeStripsCommentsAndBlankLines(t *testing.T) {
	src := "x = 1 // trailing comment\n\n# python style\ny = 2\n"
	tokens := Tokenize(src)
	assert.NotContains(t, tokens, "//")
	assert.Contains(t, tokens, "x")
	assert.Contains(t, tokens, "y")
}

func TestShinglesProducesOverlappingWindows(t *testing.T) {
	tokens := []string{"a", "b", "c", "d"}
	shingles := Shingles(tokens, 3)
	require.Len(t, shingles, 2)
	assert.Equal(t, "a b c", shingles[0])
	assert.Equal(t, "b c d", shingles[1])
}

func TestMinHashIdenticalDocumentsHaveIdenticalSignatures(t *testing.T) {
	hasher := NewMinHasher(64)
	shingles := Shingles(Tokenize("func add ( a , b ) { return a + b }"), 3)
	sigA := hasher.Sign(shingles)
	sigB := hasher.Sign(shingles)
	assert.Equal(t, sigA, sigB)
	assert.Equal(t, 1.0, JaccardEstimate(sigA, sigB))
}

func TestMinHashDisjointDocumentsHaveLowJaccard(t *testing.T) {
	hasher := NewMinHasher(128)
	sigA := hasher.Sign(Shingles(Tokenize("alpha beta gamma delta epsilon"), 3))
	sigB := hasher.Sign(Shingles(Tokenize("zulu yankee xray whiskey victor"), 3))
	assert.Less(t, JaccardEstimate(sigA, sigB), 0.5)
}

func TestLSHIndexFindsNearDuplicateCandidates(t *testing.T) {
	hasher := NewMinHasher(128)
	idx := NewLSHIndex(128, 8)

	common := "for i in range ( n ) : total += values [ i ] if values [ i ] > 0"
	sigA := hasher.Sign(Shingles(Tokenize(common), 3))
	sigB := hasher.Sign(Shingles(Tokenize(common+" # trailing"), 3))
	sigC := hasher.Sign(Shingles(Tokenize("completely unrelated document about network sockets"), 3))

	idx.Add("a", sigA)
	idx.Add("b", sigB)
	idx.Add("c", sigC)

	pairs := idx.CandidatePairs()
	found := false
	for _, p := range pairs {
		if (p[0] == "a" && p[1] == "b") || (p[0] == "b" && p[1] == "a") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPassesGatesRejectsBelowThresholds(t *testing.T) {
	th := DefaultGateThresholds()
	small := &Document{TokenCount: 5, ASTNodes: 5, DistinctBlocks: 0}
	big := &Document{TokenCount: 100, ASTNodes: 100, DistinctBlocks: 3}
	assert.False(t, PassesGates(&Candidate{A: small, B: big}, th))
	assert.True(t, PassesGates(&Candidate{A: big, B: big}, th))
}

func TestStopMotifCacheDownweightsFrequentShingles(t *testing.T) {
	corpus := []map[string]int{
		{"if err != nil": 1, "return nil , err": 1, "unique alpha token": 1},
		{"if err != nil": 1, "return nil , err": 1, "unique beta token": 1},
		{"if err != nil": 1, "return nil , err": 1, "unique gamma token": 1},
	}
	cache := BuildStopMotifCache(corpus, 3, 0.5, 0.2, CodebaseSignature{FileCount: 3, LineCount: 30})
	assert.Equal(t, 0.2, cache.Weight("if err != nil"))
	assert.Equal(t, 1.0, cache.Weight("unique alpha token"))
}

func TestStopMotifCacheSaveLoadRoundTrips(t *testing.T) {
	cache := BuildStopMotifCache([]map[string]int{{"a b c": 5}}, 3, 1.0, 0.2, CodebaseSignature{FileCount: 1, LineCount: 10})
	var buf bytes.Buffer
	require.NoError(t, cache.Save(&buf))

	loaded, err := LoadStopMotifCache(&buf)
	require.NoError(t, err)
	assert.Equal(t, cache.Version, loaded.Version)
	assert.Equal(t, cache.Signature, loaded.Signature)
}

func TestNeedsRefreshOnAgeOrChange(t *testing.T) {
	cache := BuildStopMotifCache(nil, 3, 0.5, 0.2, CodebaseSignature{LineCount: 100})
	assert.False(t, cache.NeedsRefresh(CodebaseSignature{LineCount: 100}, 7, 50))
	assert.True(t, cache.NeedsRefresh(CodebaseSignature{LineCount: 200}, 7, 50))
}

func TestEditDistanceIdenticalTreesIsZero(t *testing.T) {
	tree := BuildLabelledTree([]string{"func", "if", "return"}, 100)
	sim, truncated := Similarity(tree, tree)
	assert.Equal(t, 1.0, sim)
	assert.False(t, truncated)
}

func TestBuildLabelledTreeTruncates(t *testing.T) {
	labels := make([]string, 10)
	for i := range labels {
		labels[i] = "node"
	}
	tree := BuildLabelledTree(labels, 5)
	assert.True(t, tree.Truncated)
	assert.Len(t, tree.Labels, 5)
}

func TestDetectorEmitsRankedCandidatesForNearDuplicates(t *testing.T) {
	common := `
def process_batch(items):
    total = 0
    for item in items:
        if item.is_valid():
            total += item.value
        else:
            total -= 1
    return total
`
	variant := `
def process_batch(records):
    total = 0
    for record in records:
        if record.is_valid():
            total += record.value
        else:
            total -= 1
    return total
`
	unrelated := `
def open_socket(host, port):
    sock = socket.create_connection((host, port))
    sock.settimeout(5)
    return sock
`
	docs := []*Document{
		{ID: "a", Source: common, TokenCount: 40, ASTNodes: 30, DistinctBlocks: 2, Language: "python"},
		{ID: "b", Source: variant, TokenCount: 40, ASTNodes: 30, DistinctBlocks: 2, Language: "python"},
		{ID: "c", Source: unrelated, TokenCount: 30, ASTNodes: 25, DistinctBlocks: 1, Language: "python"},
	}

	// A small, low-row-count banding (R=H/B=2) is used here so the candidate
	// pair is found with near certainty regardless of the exact weighted
	// Jaccard value; production defaults (H=128, B=8) trade recall at
	// moderate similarity for fewer spurious candidate pairs at scale.
	det := New(
		config.LSH{NumHashes: 32, NumBands: 16, ShingleSize: 3, SimilarityThreshold: 0.5},
		config.Dedupe{SimilarityThreshold: 0.5, MinFunctionTokens: 10, MinASTNodes: 10, RequireDistinctBlocks: 1, MinSavedTokens: 1, MinRarityGain: 1.2},
		config.Denoise{Enabled: true, MaxAgeDays: 7, ChangeThresholdPct: 50},
		nil,
	)

	emitted, counts := det.DetectWithTrace(docs, nil)
	require.GreaterOrEqual(t, counts.RawPairs, 1)
	var sawAB bool
	for _, c := range emitted {
		if (c.A.ID == "a" && c.B.ID == "b") || (c.A.ID == "b" && c.B.ID == "a") {
			sawAB = true
			assert.Equal(t, PhaseEmitted, c.Phase)
			assert.Greater(t, c.Payoff, 0.0)
		}
	}
	assert.True(t, sawAB)
}

func TestQualityMetricInRangeZeroOne(t *testing.T) {
	counts := PhaseCounts{RawPairs: 10, PassedWeighted: 6, PassedGates: 4, PassedMotifs: 3, Ranked: 3}
	candidates := []*Candidate{{WeightedJaccard: 0.8}, {WeightedJaccard: 0.9}}
	q := QualityMetric(candidates, counts, DefaultQualityWeights())
	assert.GreaterOrEqual(t, q, 0.0)
	assert.LessOrEqual(t, q, 1.0)
}
