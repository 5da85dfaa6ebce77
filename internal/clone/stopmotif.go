package clone

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/mroth/weightedrand"

	verrors "github.com/sibyllinesoft/valknut/internal/errors"
)

// TokenGramEntry is one learned frequent-shingle entry in the stop-motif cache.
type TokenGramEntry struct {
	Pattern  string
	Support  int
	IDF      float64
	Weight   float64
	Category string
}

// PDGMotifEntry is a short AST-role sequence the miner judged boilerplate.
type PDGMotifEntry struct {
	Sequence string
	Support  int
	Weight   float64
}

// CodebaseSignature is the hash-of-per-file-hashes used to detect drift
// between cache-build time and query time (phase 3).
type CodebaseSignature struct {
	FileCount  int
	LineCount  int
	ContentSum uint64
}

// StopMotifCache is the persisted learned-boilerplate cache of 
// phase 3: version, k-gram size, token-gram/PDG-motif/AST-pattern entries,
// last-updated timestamp, a codebase signature, and mining statistics.
type StopMotifCache struct {
	Version        int
	KGramSize      int
	TokenGrams     []TokenGramEntry
	PDGMotifs      []PDGMotifEntry
	ASTPatterns    map[string][]TokenGramEntry // keyed by language
	LastUpdated    time.Time
	Signature      CodebaseSignature
	MiningStats    MiningStats
}

// MiningStats records how the cache was built, for observability.
type MiningStats struct {
	DocumentsScanned int
	DistinctShingles int
	TopFraction      float64
}

const stopMotifCacheVersion = 1

// hubSuppressorPatterns reject well-known infrastructure idioms that would
// otherwise be learned as "boilerplate" purely by frequency (
// phase 3's hub-suppressor).
var hubSuppressorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^log\.|logger\.|logging\.`),
	regexp.MustCompile(`(?i)fmt\.(print|sprintf|errorf)`),
	regexp.MustCompile(`(?i)router\.|\.handle\(|http\.(get|post|handlefunc)`),
	regexp.MustCompile(`(?i)\b(select|insert|update|delete|from|where)\b.*\b(select|insert|from|where)\b`),
	regexp.MustCompile(`(?i)assert\.|expect\(|\.should\.`),
}

func isHubPattern(s string) bool {
	for _, p := range hubSuppressorPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// BuildStopMotifCache mines a learned down-weight cache from a corpus of
// shingle sets: the top topFraction (default 0.75%) most frequent k-grams,
// excluding hub-suppressor idioms, are down-weighted by weightMultiplier
// (default 0.2).
func BuildStopMotifCache(corpus []map[string]int, kGramSize int, topFraction, weightMultiplier float64, sig CodebaseSignature) *StopMotifCache {
	support := make(map[string]int)
	total := 0
	for _, doc := range corpus {
		for gram, count := range doc {
			support[gram] += count
			total += count
		}
	}

	type scored struct {
		gram  string
		count int
	}
	all := make([]scored, 0, len(support))
	for g, c := range support {
		all = append(all, scored{g, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].gram < all[j].gram
	})

	cutoff := int(float64(len(all)) * topFraction)
	if cutoff < 1 && len(all) > 0 {
		cutoff = 1
	}

	var entries []TokenGramEntry
	docCount := len(corpus)
	for i := 0; i < cutoff && i < len(all); i++ {
		gram := all[i].gram
		if isHubPattern(gram) {
			continue
		}
		docFreq := 0
		for _, doc := range corpus {
			if doc[gram] > 0 {
				docFreq++
			}
		}
		idf := 0.0
		if docFreq > 0 && docCount > 0 {
			idf = math.Log(float64(docCount) / float64(docFreq))
		}
		entries = append(entries, TokenGramEntry{
			Pattern:  gram,
			Support:  all[i].count,
			IDF:      idf,
			Weight:   weightMultiplier,
			Category: "stop_motif",
		})
	}

	return &StopMotifCache{
		Version:     stopMotifCacheVersion,
		KGramSize:   kGramSize,
		TokenGrams:  entries,
		ASTPatterns: make(map[string][]TokenGramEntry),
		LastUpdated: time.Now(),
		Signature:   sig,
		MiningStats: MiningStats{
			DocumentsScanned: docCount,
			DistinctShingles: len(all),
			TopFraction:      topFraction,
		},
	}
}

// SampleRepresentative draws n patterns from the cache weighted by support,
// used by runClone's cache-load log line to report a representative sample
// of learned stop-motifs without dumping the full entry list.
func (c *StopMotifCache) SampleRepresentative(n int) ([]string, error) {
	if len(c.TokenGrams) == 0 {
		return nil, nil
	}
	choices := make([]weightedrand.Choice, 0, len(c.TokenGrams))
	for _, e := range c.TokenGrams {
		weight := e.Support
		if weight < 1 {
			weight = 1
		}
		choices = append(choices, weightedrand.Choice{Item: e.Pattern, Weight: uint(weight)})
	}
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, verrors.Cache(err)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, chooser.Pick().(string))
	}
	return out, nil
}

// Weight returns the down-weight multiplier for shingle s, 1.0 if s is not a
// learned stop-motif.
func (c *StopMotifCache) Weight(s string) float64 {
	if c == nil {
		return 1.0
	}
	for _, e := range c.TokenGrams {
		if e.Pattern == s {
			return e.Weight
		}
	}
	return 1.0
}

// NeedsRefresh implements phase 3's refresh policy: age beyond
// maxAgeDays, or the codebase signature differs beyond changeThresholdPercent
// of its prior line count.
func (c *StopMotifCache) NeedsRefresh(current CodebaseSignature, maxAgeDays, changeThresholdPercent float64) bool {
	if c == nil {
		return true
	}
	age := time.Since(c.LastUpdated).Hours() / 24
	if age > maxAgeDays {
		return true
	}
	if c.Signature.LineCount == 0 {
		return current.LineCount != 0
	}
	delta := absf(float64(current.LineCount-c.Signature.LineCount)) / float64(c.Signature.LineCount) * 100
	return delta > changeThresholdPercent
}

// Save serializes the cache as zstd-compressed JSON.
func (c *StopMotifCache) Save(w io.Writer) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return verrors.Cache(err)
	}
	defer enc.Close()
	if err := json.NewEncoder(enc).Encode(c); err != nil {
		return verrors.Cache(err)
	}
	return nil
}

// LoadStopMotifCache deserializes a cache previously written by Save. A read
// error is treated as "cache absent" by the caller 
// failure semantics (rebuild from scratch); every failure here is returned
// wrapped as a Cache error.
func LoadStopMotifCache(r io.Reader) (*StopMotifCache, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, verrors.Cache(err)
	}
	defer dec.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, verrors.Cache(err)
	}

	var c StopMotifCache
	if err := json.Unmarshal(buf.Bytes(), &c); err != nil {
		return nil, verrors.Cache(err)
	}
	return &c, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
