package clone

import (
	"math"
	"sort"

	"github.com/sibyllinesoft/valknut/internal/config"
)

// Detector runs the full clone-detection pipeline: weighted
// MinHash + banded LSH candidate generation, structural gates, stop-motif
// down-weighting, optional APTED verification, and payoff-ranked output.
type Detector struct {
	cfg       config.Dedupe
	lshCfg    config.LSH
	denoise   config.Denoise
	gates     GateThresholds
	stopMotif *StopMotifCache
}

// New builds a Detector from the LSH/Dedupe/Denoise configuration sections.
func New(lshCfg config.LSH, dedupe config.Dedupe, denoise config.Denoise, stopMotif *StopMotifCache) *Detector {
	return &Detector{
		cfg:     dedupe,
		lshCfg:  lshCfg,
		denoise: denoise,
		gates: GateThresholds{
			MinFunctionTokens:     dedupe.MinFunctionTokens,
			MinASTNodes:           dedupe.MinASTNodes,
			RequireDistinctBlocks: dedupe.RequireDistinctBlocks,
		},
		stopMotif: stopMotif,
	}
}

// AdapterSupport is the per-document data a language adapter must supply for
// APTED verification: the preorder sequence of AST node-kind labels.
type AdapterSupport interface {
	PreorderLabels(doc *Document) []string
}

// Detect runs the full pipeline over docs, returning ranked candidates that
// survived every phase (state machine: emitted candidates
// only; rejects and below-floor candidates are dropped from the returned
// slice). DetectWithTrace returns the same emitted candidates together with
// the per-phase counts.
func (d *Detector) Detect(docs []*Document, support AdapterSupport) []*Candidate {
	emitted, _ := d.DetectWithTrace(docs, support)
	return emitted
}

// PhaseCounts tallies how many candidates survived each phase, for the
// auto-calibration loop's quality metric and for reporting.
type PhaseCounts struct {
	RawPairs          int
	PassedWeighted    int
	PassedGates       int
	PassedMotifs      int
	Ranked            int
}

// DetectWithTrace runs the pipeline and additionally returns phase-filtering
// telemetry ("full phase-filtering telemetry" requirement).
func (d *Detector) DetectWithTrace(docs []*Document, support AdapterSupport) ([]*Candidate, PhaseCounts) {
	var counts PhaseCounts
	if len(docs) < 2 {
		return nil, counts
	}

	k := d.lshCfg.ShingleSize
	if k <= 0 {
		k = 9
	}
	numHashes := d.lshCfg.NumHashes
	if numHashes <= 0 {
		numHashes = 128
	}
	numBands := d.lshCfg.NumBands
	if numBands <= 0 {
		numBands = 8
	}
	threshold := d.cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.7
	}

	corpus := make(map[string]map[string]int, len(docs))
	for _, doc := range docs {
		corpus[doc.ID] = ShingleSet(doc.Source, k)
	}
	idf := computeIDF(corpus)

	hasher := NewMinHasher(numHashes)
	byID := make(map[string]*Document, len(docs))
	sigs := make(map[string]Signature, len(docs))
	index := NewLSHIndex(numHashes, numBands)

	for _, doc := range docs {
		byID[doc.ID] = doc
		weights := make(map[string]float64, len(corpus[doc.ID]))
		for gram, count := range corpus[doc.ID] {
			w := idf[gram] * float64(count)
			if d.stopMotif != nil {
				w *= d.stopMotif.Weight(gram)
			}
			weights[gram] = w
		}
		sig := hasher.SignWeighted(weights)
		sigs[doc.ID] = sig
		index.Add(doc.ID, sig)
	}

	var candidates []*Candidate
	for _, pair := range index.CandidatePairs() {
		counts.RawPairs++
		a, b := byID[pair[0]], byID[pair[1]]
		jaccard := JaccardEstimate(sigs[pair[0]], sigs[pair[1]])

		c := &Candidate{A: a, B: b, WeightedJaccard: jaccard, Phase: PhaseRawPair}
		if jaccard < threshold {
			c.Phase = PhaseRejectedBoilerplate
			candidates = append(candidates, c)
			continue
		}
		c.Phase = PhasePassedWeighted
		counts.PassedWeighted++

		if !PassesGates(c, d.gates) {
			c.Phase = PhaseRejectedStructural
			candidates = append(candidates, c)
			continue
		}
		c.Phase = PhasePassedGates
		counts.PassedGates++

		// Phase 3: stop-motif re-scoring. A pair whose shared shingles are
		// almost entirely learned stop-motifs is boilerplate, not a clone.
		if d.stopMotif != nil && isMostlyStopMotif(corpus[a.ID], corpus[b.ID], d.stopMotif) {
			c.Phase = PhaseRejectedStopMotif
			candidates = append(candidates, c)
			continue
		}
		c.Phase = PhasePassedMotifs
		counts.PassedMotifs++

		if support != nil && d.lshCfg.VerifyWithApted {
			maxNodes := d.lshCfg.AptedMaxNodes
			if maxNodes <= 0 {
				maxNodes = 4000
			}
			treeA := BuildLabelledTree(support.PreorderLabels(a), maxNodes)
			treeB := BuildLabelledTree(support.PreorderLabels(b), maxNodes)
			sim, truncated := Similarity(treeA, treeB)
			c.APTEDSimilarity = sim
			c.APTEDTruncated = truncated
			c.UsedAPTED = true
			if sim < threshold {
				c.Phase = PhaseRejectedStopMotif
				candidates = append(candidates, c)
				continue
			}
		}

		c.Phase = PhaseRanked
		counts.Ranked++
		scorePayoff(c, d.cfg)
		candidates = append(candidates, c)
	}

	var emitted []*Candidate
	for _, c := range candidates {
		if c.Phase != PhaseRanked {
			continue
		}
		if c.SavedTokens < d.cfg.MinSavedTokens && d.cfg.MinSavedTokens > 0 {
			c.Phase = PhaseBelowFloor
			continue
		}
		if c.RarityGain < d.cfg.MinRarityGain && d.cfg.MinRarityGain > 0 {
			c.Phase = PhaseBelowFloor
			continue
		}
		c.Phase = PhaseEmitted
		emitted = append(emitted, c)
	}
	sort.SliceStable(emitted, func(i, j int) bool { return emitted[i].Payoff > emitted[j].Payoff })

	return emitted, counts
}

func computeIDF(corpus map[string]map[string]int) map[string]float64 {
	docFreq := make(map[string]int)
	for _, doc := range corpus {
		for gram := range doc {
			docFreq[gram]++
		}
	}
	n := float64(len(corpus))
	idf := make(map[string]float64, len(docFreq))
	for gram, freq := range docFreq {
		idf[gram] = logSafe(n / float64(freq))
	}
	return idf
}

func isMostlyStopMotif(a, b map[string]int, cache *StopMotifCache) bool {
	shared := 0
	stop := 0
	for gram := range a {
		if _, ok := b[gram]; !ok {
			continue
		}
		shared++
		if cache.Weight(gram) < 1.0 {
			stop++
		}
	}
	if shared == 0 {
		return false
	}
	return float64(stop)/float64(shared) >= 0.75
}

// scorePayoff computes payoff = saved_tokens · rarity_gain · live_reach_boost,
// with the default floors from phase 4.
func scorePayoff(c *Candidate, cfg config.Dedupe) {
	tokensA, tokensB := c.A.TokenCount, c.B.TokenCount
	saved := tokensA
	if tokensB < saved {
		saved = tokensB
	}
	c.SavedTokens = saved

	rarity := 1.0 + c.WeightedJaccard
	if rarity < 1.2 {
		rarity = 1.2
	}
	c.RarityGain = rarity

	// live_reach_boost approximates how broadly reachable the duplicated
	// logic is: more distinct blocks touched implies more call sites could
	// benefit from deduplication.
	reach := 1.0 + 0.1*float64(c.A.DistinctBlocks+c.B.DistinctBlocks)
	c.LiveReachBoost = reach

	c.Payoff = float64(c.SavedTokens) * c.RarityGain * c.LiveReachBoost
}

func logSafe(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log(v)
}
