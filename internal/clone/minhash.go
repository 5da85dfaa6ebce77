package clone

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Signature is a MinHash signature: H independent minimum hash values over a
// document's shingle set.
type Signature []uint64

// hashSeeds are H independent hash-function seeds, derived deterministically
// so signatures are reproducible across runs (determinism).
func hashSeeds(h int) []uint64 {
	seeds := make([]uint64, h)
	var state uint64 = 0x9E3779B97F4A7C15
	for i := range seeds {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		seeds[i] = state
	}
	return seeds
}

func seededHash(seed uint64, s string) uint64 {
	d := xxhash.New()
	var seedBytes [8]byte
	for i := 0; i < 8; i++ {
		seedBytes[i] = byte(seed >> (8 * i))
	}
	d.Write(seedBytes[:])
	d.Write([]byte(s))
	return d.Sum64()
}

// MinHasher computes MinHash signatures using a fixed set of H hash-function
// seeds shared across all documents in one detection run.
type MinHasher struct {
	seeds []uint64
}

// NewMinHasher builds a MinHasher with h independent hash functions.
func NewMinHasher(h int) *MinHasher {
	return &MinHasher{seeds: hashSeeds(h)}
}

// Sign computes the unweighted MinHash signature of a shingle set.
func (m *MinHasher) Sign(shingles []string) Signature {
	sig := make(Signature, len(m.seeds))
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for _, s := range shingles {
		for i, seed := range m.seeds {
			h := seededHash(seed, s)
			if h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

// SignWeighted computes a consistent-weighted-sampling-style MinHash
// signature: for each slot every shingle draws an exponential value scaled by
// 1/weight, and the slot keeps the hash of the shingle with the smallest draw,
// so higher-IDF shingles are more likely to win a given hash slot. This is the
// Open Question decision recorded in DESIGN.md (CWS over plain bucketed
// weighting).
func (m *MinHasher) SignWeighted(weights map[string]float64) Signature {
	sig := make(Signature, len(m.seeds))
	minR := make([]float64, len(m.seeds))
	for i := range sig {
		sig[i] = math.MaxUint64
		minR[i] = math.Inf(1)
	}
	for s, w := range weights {
		if w <= 0 {
			continue
		}
		// CWS: draw r = -ln(u)/w for u derived from a keyed hash of (s, i);
		// heavier shingles draw systematically lower r, and the shingle with
		// the lowest r owns the slot without literal repetition.
		for i, seed := range m.seeds {
			h := seededHash(seed, s)
			r := -math.Log(hashToUnitInterval(h)) / w
			if r < minR[i] {
				minR[i] = r
				sig[i] = h
			}
		}
	}
	return sig
}

func hashToUnitInterval(h uint64) float64 {
	// Avoid exactly 0 (undefined log) and exactly 1.
	v := float64(h%1_000_000_007) / 1_000_000_007.0
	if v <= 0 {
		v = 1e-12
	}
	if v >= 1 {
		v = 1 - 1e-12
	}
	return v
}

// JaccardEstimate is the fraction of equal positions between two signatures
// of the same length, an unbiased estimator of the Jaccard similarity of the
// underlying sets.
func JaccardEstimate(a, b Signature) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	equal := 0
	for i := range a {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(a))
}
