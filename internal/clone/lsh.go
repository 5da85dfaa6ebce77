package clone

import (
	"github.com/cespare/xxhash/v2"
)

// LSHIndex buckets MinHash signatures into B bands of R=H/B rows each; any
// two documents sharing a bucket in at least one band are emitted as a
// candidate pair.
type LSHIndex struct {
	numBands int
	rows     int
	buckets  []map[uint64][]string // one bucket map per band
}

// NewLSHIndex builds an index for signatures of length h split into
// numBands bands.
func NewLSHIndex(h, numBands int) *LSHIndex {
	if numBands < 1 {
		numBands = 1
	}
	rows := h / numBands
	if rows < 1 {
		rows = 1
	}
	buckets := make([]map[uint64][]string, numBands)
	for i := range buckets {
		buckets[i] = make(map[uint64][]string)
	}
	return &LSHIndex{numBands: numBands, rows: rows, buckets: buckets}
}

// Add inserts one document's signature under id into every band's bucket map.
func (idx *LSHIndex) Add(id string, sig Signature) {
	for band := 0; band < idx.numBands; band++ {
		start := band * idx.rows
		end := start + idx.rows
		if end > len(sig) {
			end = len(sig)
		}
		if start >= end {
			continue
		}
		key := hashBand(sig[start:end])
		idx.buckets[band][key] = append(idx.buckets[band][key], id)
	}
}

func hashBand(rows Signature) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, r := range rows {
		for i := 0; i < 8; i++ {
			buf[i] = byte(r >> (8 * i))
		}
		d.Write(buf[:])
	}
	return d.Sum64()
}

// CandidatePairs returns every distinct unordered pair of document ids that
// shared a bucket in at least one band.
func (idx *LSHIndex) CandidatePairs() [][2]string {
	seen := make(map[[2]string]bool)
	var pairs [][2]string
	for _, band := range idx.buckets {
		for _, ids := range band {
			if len(ids) < 2 {
				continue
			}
			for i := 0; i < len(ids); i++ {
				for j := i + 1; j < len(ids); j++ {
					a, b := ids[i], ids[j]
					if a > b {
						a, b = b, a
					}
					key := [2]string{a, b}
					if !seen[key] {
						seen[key] = true
						pairs = append(pairs, key)
					}
				}
			}
		}
	}
	return pairs
}

// MatchProbability is the theoretical probability that a pair with true
// similarity s is found as a candidate, P(match) = 1 − (1 − s^R)^B.
func MatchProbability(s float64, rows, bands int) float64 {
	inner := 1 - pow(s, rows)
	return 1 - pow(inner, bands)
}

func pow(x float64, n int) float64 {
	if n <= 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
