package cohesion

import (
	"math"
	"sort"
)

// Normalize returns v scaled to unit length, or the zero vector unchanged if
// v itself is zero (an entity with no extractable tokens embeds to zero).
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CosineSimilarity computes the cosine similarity of two equal-length
// vectors, 0 if either is the zero vector.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RobustCentroid computes a "median-like" centroid (step 3): the
// coordinate-wise median of the embeddings, re-normalized to a unit vector.
// A coordinate median resists the influence of one or two outlier entities
// the way a coordinate mean would not.
func RobustCentroid(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}
	dim := len(embeddings[0])
	centroid := make([]float32, dim)
	column := make([]float64, len(embeddings))
	for d := 0; d < dim; d++ {
		for i, emb := range embeddings {
			if d < len(emb) {
				column[i] = float64(emb[d])
			} else {
				column[i] = 0
			}
		}
		centroid[d] = float32(median(column))
	}
	return Normalize(centroid)
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// CohesionScore is the file cohesion score: the mean cosine similarity of
// each entity embedding to the file's robust centroid.
func CohesionScore(embeddings [][]float32, centroid []float32) float64 {
	if len(embeddings) == 0 {
		return 1.0
	}
	var sum float64
	for _, e := range embeddings {
		sum += CosineSimilarity(e, centroid)
	}
	return sum / float64(len(embeddings))
}

// DocAlignment is cosine(centroid, docEmbedding), step 4.
func DocAlignment(docEmbedding, centroid []float32) float64 {
	return CosineSimilarity(docEmbedding, centroid)
}

// Outlier pairs an entity index with its similarity to the container
// centroid.
type Outlier struct {
	Index      int
	Similarity float64
}

// FindOutliers returns the entities in the lowest outlierPercentile of
// similarity to centroid, unioned with any entity whose absolute similarity
// falls below minSimilarity — step 5. The percentile-based set
// catches "relatively" scattered entities even in a uniformly dense file; the
// absolute floor catches entities that are unambiguously unrelated even when
// most of the file is loosely related.
func FindOutliers(embeddings [][]float32, centroid []float32, outlierPercentile, minSimilarity float64) []Outlier {
	n := len(embeddings)
	if n == 0 {
		return nil
	}
	sims := make([]Outlier, n)
	for i, e := range embeddings {
		sims[i] = Outlier{Index: i, Similarity: CosineSimilarity(e, centroid)}
	}

	sorted := append([]Outlier(nil), sims...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Similarity < sorted[j].Similarity })

	k := int(math.Ceil(outlierPercentile / 100.0 * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	flagged := make(map[int]bool, n)
	for i := 0; i < k; i++ {
		flagged[sorted[i].Index] = true
	}
	for _, o := range sims {
		if o.Similarity < minSimilarity {
			flagged[o.Index] = true
		}
	}

	out := make([]Outlier, 0, len(flagged))
	for _, o := range sims {
		if flagged[o.Index] {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity < out[j].Similarity })
	return out
}

// RollupState accumulates a weighted sum of entity embeddings for folder-level
// aggregation (step 6), mirroring the original's skip-serialized
// rollup_sum field: only the running sum and count are kept, not the
// individual embeddings.
type RollupState struct {
	N   int
	Sum []float32
}

// NewRollupState creates an empty rollup accumulator of the given dimension.
func NewRollupState(dimension int) *RollupState {
	return &RollupState{Sum: make([]float32, dimension)}
}

// Add folds one unit embedding into the rollup with weight 1.
func (r *RollupState) Add(embedding []float32) {
	for i, x := range embedding {
		if i >= len(r.Sum) {
			break
		}
		r.Sum[i] += x
	}
	r.N++
}

// AddRollup folds another (already-aggregated) rollup into this one at the
// given weight, used when a file's rollup is folded into its parent folder's
// rollup with weight = log(1 + entity_count).
func (r *RollupState) AddRollup(other *RollupState, weight float32) {
	centroid := other.Centroid()
	for i, x := range centroid {
		if i >= len(r.Sum) {
			break
		}
		r.Sum[i] += x * weight
	}
	r.N += other.N
}

// Centroid returns the unit-normalized mean of the accumulated embeddings.
func (r *RollupState) Centroid() []float32 {
	if r.N == 0 {
		return make([]float32, len(r.Sum))
	}
	mean := make([]float32, len(r.Sum))
	for i, x := range r.Sum {
		mean[i] = x / float32(r.N)
	}
	return Normalize(mean)
}

// Cohesion approximates mean cosine-to-centroid via the mean resultant
// length of the accumulated unit vectors (||Σv/n||): vectors pointing the
// same direction keep the sum's magnitude close to n, scattered vectors
// cancel toward zero. This is the "vector concentration" measure the
// original cohesion detector's module doc describes, adapted to work from
// only a running sum (no individual embeddings are retained for folder
// rollups).
func (r *RollupState) Cohesion() float64 {
	if r.N == 0 {
		return 1.0
	}
	var sumSq float64
	for _, x := range r.Sum {
		sumSq += float64(x) * float64(x)
	}
	length := math.Sqrt(sumSq) / float64(r.N)
	if length > 1 {
		length = 1
	}
	return length
}

// FileWeight is the folder roll-up weight for a file with n entities:
// log(1 + n), step 6.
func FileWeight(entityCount int) float64 {
	return math.Log(1 + float64(entityCount))
}
