package vectorstore

import (
	"fmt"
	"math"
	"sort"
)

// vectorIndex is an in-process ANN structure. Positions are dense integers
// assigned in insertion order and never reused; the engine layers soft
// deletion on top via the position mapping.
type vectorIndex interface {
	// Add appends vectors, assigning positions [Len(), Len()+n).
	Add(vectors [][]float32) error

	// Search returns up to k positions with similarity scores (higher is
	// more similar), in the index's native rank order.
	Search(query []float32, k int) ([]int, []float32)

	// Len returns the number of vectors ever added, tombstones included.
	Len() int

	// snapshot captures the index state for persistence.
	snapshot() *indexSnapshot
}

// indexSnapshot is the gob-encoded on-disk form of an index. Flat indexes
// use only Vectors; IVF adds centroids and list assignments; HNSW adds the
// layered graph.
type indexSnapshot struct {
	Algorithm string
	Metric    string
	Dimension int
	Vectors   [][]float32

	// IVF state.
	Centroids   [][]float32
	Assignments []int32
	TrainedAt   int

	// HNSW state.
	Levels   []int32
	Links    [][][]int32
	EntryPos int
	MaxLevel int
}

// newIndex creates an empty index for the configured algorithm.
func newIndex(cfg IndexConfig) (vectorIndex, error) {
	switch cfg.Algorithm {
	case AlgorithmFlatIP:
		return newFlatIndex(cfg.Dimension, true), nil
	case AlgorithmFlatL2:
		return newFlatIndex(cfg.Dimension, false), nil
	case AlgorithmIVFFlat:
		return newIVFIndex(cfg.Dimension, cfg.Metric, cfg.NList, cfg.NProbe), nil
	case AlgorithmHNSW:
		return newHNSWIndex(cfg.Dimension, cfg.Metric), nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, cfg.Algorithm)
	}
}

// restoreIndex reconstructs an index from a persisted snapshot.
func restoreIndex(snap *indexSnapshot, cfg IndexConfig) (vectorIndex, error) {
	if snap.Algorithm != cfg.Algorithm {
		return nil, fmt.Errorf("%w: snapshot algorithm %q does not match configured %q",
			ErrInvalidConfig, snap.Algorithm, cfg.Algorithm)
	}
	if snap.Dimension != cfg.Dimension {
		return nil, fmt.Errorf("%w: snapshot dimension %d does not match configured %d",
			ErrDimensionMismatch, snap.Dimension, cfg.Dimension)
	}

	switch cfg.Algorithm {
	case AlgorithmFlatIP, AlgorithmFlatL2:
		idx := newFlatIndex(cfg.Dimension, cfg.Algorithm == AlgorithmFlatIP)
		idx.vectors = snap.Vectors
		return idx, nil
	case AlgorithmIVFFlat:
		return restoreIVFIndex(snap, cfg), nil
	case AlgorithmHNSW:
		return restoreHNSWIndex(snap, cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, cfg.Algorithm)
	}
}

// flatIndex is exact brute-force search, the FAISS IndexFlat analog.
// innerProduct selects inner-product scoring; otherwise L2.
type flatIndex struct {
	dimension    int
	innerProduct bool
	vectors      [][]float32
}

func newFlatIndex(dimension int, innerProduct bool) *flatIndex {
	return &flatIndex{dimension: dimension, innerProduct: innerProduct}
}

func (f *flatIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != f.dimension {
			return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(v), f.dimension)
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

func (f *flatIndex) Search(query []float32, k int) ([]int, []float32) {
	scores := make([]float32, len(f.vectors))
	for i, v := range f.vectors {
		if f.innerProduct {
			scores[i] = dot(query, v)
		} else {
			scores[i] = distanceToScore(l2Distance(query, v))
		}
	}
	return topK(scores, k)
}

func (f *flatIndex) Len() int { return len(f.vectors) }

func (f *flatIndex) snapshot() *indexSnapshot {
	alg := AlgorithmFlatL2
	if f.innerProduct {
		alg = AlgorithmFlatIP
	}
	return &indexSnapshot{
		Algorithm: alg,
		Dimension: f.dimension,
		Vectors:   f.vectors,
	}
}

// topK returns the positions of the k highest scores in descending order.
func topK(scores []float32, k int) ([]int, []float32) {
	positions := make([]int, len(scores))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return scores[positions[a]] > scores[positions[b]]
	})
	if k > len(positions) {
		k = len(positions)
	}
	outPos := make([]int, k)
	outScores := make([]float32, k)
	for i := 0; i < k; i++ {
		outPos[i] = positions[i]
		outScores[i] = scores[positions[i]]
	}
	return outPos, outScores
}

// Vector math helpers.

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func l2Distance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// distanceToScore maps a distance to a similarity in (0, 1] so "higher is
// better" holds for every algorithm.
func distanceToScore(d float32) float32 {
	return 1 / (1 + d)
}

// normalized returns an L2-normalized copy of v. Zero vectors are returned
// unchanged.
func normalized(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(float64(sum)))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// metricDistance returns the distance for a metric: cosine distance
// (1 - dot, assuming normalized inputs) or euclidean.
func metricDistance(metric string, a, b []float32) float32 {
	if metric == MetricCosine {
		return 1 - dot(a, b)
	}
	return l2Distance(a, b)
}

// metricScore converts a metricDistance value back to a similarity score.
func metricScore(metric string, d float32) float32 {
	if metric == MetricCosine {
		return 1 - d
	}
	return distanceToScore(d)
}
