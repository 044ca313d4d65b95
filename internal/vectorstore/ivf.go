package vectorstore

import (
	"fmt"
	"sort"
)

// kmeans iteration cap. Lloyd converges fast enough on embedding data.
const ivfTrainIterations = 10

// ivfIndex is an inverted-file index over flat lists, the FAISS IVFFlat
// analog. Vectors are clustered into nlist Voronoi cells; a search probes
// the nprobe nearest cells only.
//
// Training happens during Add, once the vector count reaches nlist, and is
// redone when the count has doubled since the last clustering. Search never
// mutates, so it is safe under a shared read lock. Below the training
// threshold the index degrades to an exact scan.
type ivfIndex struct {
	dimension int
	metric    string
	nlist     int
	nprobe    int

	vectors     [][]float32
	centroids   [][]float32
	assignments []int32 // position -> centroid, parallel to vectors
	trainedAt   int     // vector count when centroids were last computed
}

func newIVFIndex(dimension int, metric string, nlist, nprobe int) *ivfIndex {
	return &ivfIndex{
		dimension: dimension,
		metric:    metric,
		nlist:     nlist,
		nprobe:    nprobe,
	}
}

func restoreIVFIndex(snap *indexSnapshot, cfg IndexConfig) *ivfIndex {
	idx := newIVFIndex(cfg.Dimension, cfg.Metric, cfg.NList, cfg.NProbe)
	idx.vectors = snap.Vectors
	idx.centroids = snap.Centroids
	idx.assignments = snap.Assignments
	idx.trainedAt = snap.TrainedAt
	return idx
}

func (ix *ivfIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dimension {
			return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(v), ix.dimension)
		}
	}
	for _, v := range vectors {
		ix.vectors = append(ix.vectors, v)
		if ix.trained() {
			ix.assignments = append(ix.assignments, int32(ix.nearestCentroid(v)))
		} else {
			ix.assignments = append(ix.assignments, -1)
		}
	}
	if ix.stale() {
		ix.train()
	}
	return nil
}

func (ix *ivfIndex) Search(query []float32, k int) ([]int, []float32) {
	if !ix.trained() {
		// Too few vectors to cluster; exact scan.
		return ix.scan(query, k, nil)
	}

	probes := ix.nearestCentroids(query, ix.nprobe)
	member := make(map[int32]bool, len(probes))
	for _, c := range probes {
		member[int32(c)] = true
	}
	return ix.scan(query, k, member)
}

// scan scores vectors, optionally restricted to the given centroid cells.
func (ix *ivfIndex) scan(query []float32, k int, cells map[int32]bool) ([]int, []float32) {
	type hit struct {
		pos   int
		score float32
	}
	var hits []hit
	for i, v := range ix.vectors {
		if cells != nil && !cells[ix.assignments[i]] {
			continue
		}
		d := metricDistance(ix.metric, query, v)
		hits = append(hits, hit{pos: i, score: metricScore(ix.metric, d)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if k > len(hits) {
		k = len(hits)
	}
	positions := make([]int, k)
	scores := make([]float32, k)
	for i := 0; i < k; i++ {
		positions[i] = hits[i].pos
		scores[i] = hits[i].score
	}
	return positions, scores
}

func (ix *ivfIndex) Len() int { return len(ix.vectors) }

func (ix *ivfIndex) trained() bool { return len(ix.centroids) > 0 }

// stale reports whether the clustering should be (re)computed.
func (ix *ivfIndex) stale() bool {
	if len(ix.vectors) < ix.nlist {
		return false
	}
	return !ix.trained() || len(ix.vectors) >= 2*ix.trainedAt
}

// train runs Lloyd's k-means over all vectors and reassigns every position.
func (ix *ivfIndex) train() {
	n := len(ix.vectors)
	nlist := ix.nlist
	if nlist > n {
		nlist = n
	}

	// Evenly spaced seeds keep training deterministic.
	centroids := make([][]float32, nlist)
	for i := 0; i < nlist; i++ {
		src := ix.vectors[i*n/nlist]
		c := make([]float32, len(src))
		copy(c, src)
		centroids[i] = c
	}

	assignments := make([]int32, n)
	for iter := 0; iter < ivfTrainIterations; iter++ {
		changed := false
		for i, v := range ix.vectors {
			best := nearestTo(ix.metric, v, centroids)
			if assignments[i] != int32(best) {
				assignments[i] = int32(best)
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, nlist)
		sums := make([][]float32, nlist)
		for c := range sums {
			sums[c] = make([]float32, ix.dimension)
		}
		for i, v := range ix.vectors {
			c := assignments[i]
			counts[c]++
			for j, x := range v {
				sums[c][j] += x
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cell keeps its previous centroid
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float32(counts[c])
			}
			if ix.metric == MetricCosine {
				centroids[c] = normalized(centroids[c])
			}
		}
	}

	ix.centroids = centroids
	ix.assignments = assignments
	ix.trainedAt = n
}

func (ix *ivfIndex) nearestCentroid(v []float32) int {
	return nearestTo(ix.metric, v, ix.centroids)
}

// nearestCentroids returns the n closest centroid indexes to the query.
func (ix *ivfIndex) nearestCentroids(query []float32, n int) []int {
	type cand struct {
		idx  int
		dist float32
	}
	cands := make([]cand, len(ix.centroids))
	for i, c := range ix.centroids {
		cands[i] = cand{idx: i, dist: metricDistance(ix.metric, query, c)}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
	if n > len(cands) {
		n = len(cands)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = cands[i].idx
	}
	return out
}

func (ix *ivfIndex) snapshot() *indexSnapshot {
	return &indexSnapshot{
		Algorithm:   AlgorithmIVFFlat,
		Metric:      ix.metric,
		Dimension:   ix.dimension,
		Vectors:     ix.vectors,
		Centroids:   ix.centroids,
		Assignments: ix.assignments,
		TrainedAt:   ix.trainedAt,
	}
}

func nearestTo(metric string, v []float32, centroids [][]float32) int {
	best := 0
	bestDist := float32(0)
	for i, c := range centroids {
		d := metricDistance(metric, v, c)
		if i == 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
