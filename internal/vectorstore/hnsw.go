package vectorstore

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// HNSW tuning. M and efConstruction follow the common defaults; efSearch is
// raised per query when k exceeds it.
const (
	hnswM              = 16
	hnswMMax0          = 32
	hnswEfConstruction = 200
	hnswEfSearch       = 64
)

// hnswIndex is a hierarchical navigable small world graph, the FAISS
// IndexHNSWFlat analog. Nodes are assigned a random level; upper layers are
// sparse express lanes for greedy descent, layer 0 holds every vector.
type hnswIndex struct {
	dimension int
	metric    string
	rng       *rand.Rand
	levelMult float64

	vectors  [][]float32
	levels   []int32
	links    [][][]int32 // node -> level -> neighbor positions
	entryPos int         // -1 while empty
	maxLevel int
}

func newHNSWIndex(dimension int, metric string) *hnswIndex {
	return &hnswIndex{
		dimension: dimension,
		metric:    metric,
		rng:       rand.New(rand.NewSource(42)), // deterministic level draws
		levelMult: 1 / math.Log(float64(hnswM)),
		entryPos:  -1,
	}
}

func restoreHNSWIndex(snap *indexSnapshot, cfg IndexConfig) *hnswIndex {
	idx := newHNSWIndex(cfg.Dimension, cfg.Metric)
	idx.vectors = snap.Vectors
	idx.levels = snap.Levels
	idx.links = snap.Links
	idx.entryPos = snap.EntryPos
	idx.maxLevel = snap.MaxLevel
	return idx
}

func (h *hnswIndex) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != h.dimension {
			return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(v), h.dimension)
		}
	}
	for _, v := range vectors {
		h.insert(v)
	}
	return nil
}

func (h *hnswIndex) insert(v []float32) {
	pos := len(h.vectors)
	h.vectors = append(h.vectors, v)

	level := int(math.Floor(-math.Log(h.rng.Float64()) * h.levelMult))
	h.levels = append(h.levels, int32(level))
	nodeLinks := make([][]int32, level+1)
	h.links = append(h.links, nodeLinks)

	if h.entryPos < 0 {
		h.entryPos = pos
		h.maxLevel = level
		return
	}

	curr := h.entryPos
	for l := h.maxLevel; l > level; l-- {
		curr = h.greedyStep(v, curr, l)
	}

	top := level
	if top > h.maxLevel {
		top = h.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := h.searchLayer(v, curr, hnswEfConstruction, l)

		maxM := hnswM
		if l == 0 {
			maxM = hnswMMax0
		}
		n := hnswM
		if n > len(candidates) {
			n = len(candidates)
		}
		for _, c := range candidates[:n] {
			nodeLinks[l] = append(nodeLinks[l], int32(c.pos))
			h.links[c.pos][l] = append(h.links[c.pos][l], int32(pos))
			h.pruneLinks(c.pos, l, maxM)
		}
		curr = candidates[0].pos
	}

	if level > h.maxLevel {
		h.entryPos = pos
		h.maxLevel = level
	}
}

// greedyStep descends one layer by repeatedly moving to the nearest linked
// neighbor until no neighbor improves on the current node.
func (h *hnswIndex) greedyStep(query []float32, start, level int) int {
	curr := start
	currDist := metricDistance(h.metric, query, h.vectors[curr])
	for {
		improved := false
		for _, n := range h.links[curr][level] {
			d := metricDistance(h.metric, query, h.vectors[n])
			if d < currDist {
				curr = int(n)
				currDist = d
				improved = true
			}
		}
		if !improved {
			return curr
		}
	}
}

// pruneLinks trims a node's neighbor list at a level to the maxM closest.
func (h *hnswIndex) pruneLinks(pos, level, maxM int) {
	neighbors := h.links[pos][level]
	if len(neighbors) <= maxM {
		return
	}
	v := h.vectors[pos]
	sort.SliceStable(neighbors, func(a, b int) bool {
		return metricDistance(h.metric, v, h.vectors[neighbors[a]]) <
			metricDistance(h.metric, v, h.vectors[neighbors[b]])
	})
	h.links[pos][level] = neighbors[:maxM]
}

type hnswCandidate struct {
	pos  int
	dist float32
}

// candidateHeap orders ascending by distance (closest first).
type candidateHeap []hnswCandidate

func (q candidateHeap) Len() int            { return len(q) }
func (q candidateHeap) Less(a, b int) bool  { return q[a].dist < q[b].dist }
func (q candidateHeap) Swap(a, b int)       { q[a], q[b] = q[b], q[a] }
func (q *candidateHeap) Push(x interface{}) { *q = append(*q, x.(hnswCandidate)) }
func (q *candidateHeap) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// resultHeap orders descending by distance (furthest first) so the worst
// result can be evicted cheaply.
type resultHeap []hnswCandidate

func (q resultHeap) Len() int            { return len(q) }
func (q resultHeap) Less(a, b int) bool  { return q[a].dist > q[b].dist }
func (q resultHeap) Swap(a, b int)       { q[a], q[b] = q[b], q[a] }
func (q *resultHeap) Push(x interface{}) { *q = append(*q, x.(hnswCandidate)) }
func (q *resultHeap) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// searchLayer runs a beam search of width ef at one layer, returning up to
// ef candidates sorted closest-first.
func (h *hnswIndex) searchLayer(query []float32, entry, ef, level int) []hnswCandidate {
	entryDist := metricDistance(h.metric, query, h.vectors[entry])
	visited := map[int]bool{entry: true}

	candidates := &candidateHeap{{pos: entry, dist: entryDist}}
	results := &resultHeap{{pos: entry, dist: entryDist}}
	heap.Init(candidates)
	heap.Init(results)

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(hnswCandidate)
		if results.Len() >= ef && c.dist > (*results)[0].dist {
			break
		}
		for _, n := range h.links[c.pos][level] {
			if visited[int(n)] {
				continue
			}
			visited[int(n)] = true
			d := metricDistance(h.metric, query, h.vectors[n])
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, hnswCandidate{pos: int(n), dist: d})
				heap.Push(results, hnswCandidate{pos: int(n), dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]hnswCandidate, results.Len())
	copy(out, *results)
	sort.SliceStable(out, func(a, b int) bool { return out[a].dist < out[b].dist })
	return out
}

func (h *hnswIndex) Search(query []float32, k int) ([]int, []float32) {
	if h.entryPos < 0 {
		return nil, nil
	}

	curr := h.entryPos
	for l := h.maxLevel; l > 0; l-- {
		curr = h.greedyStep(query, curr, l)
	}

	ef := hnswEfSearch
	if k > ef {
		ef = k
	}
	candidates := h.searchLayer(query, curr, ef, 0)
	if k > len(candidates) {
		k = len(candidates)
	}
	positions := make([]int, k)
	scores := make([]float32, k)
	for i := 0; i < k; i++ {
		positions[i] = candidates[i].pos
		scores[i] = metricScore(h.metric, candidates[i].dist)
	}
	return positions, scores
}

func (h *hnswIndex) Len() int { return len(h.vectors) }

func (h *hnswIndex) snapshot() *indexSnapshot {
	return &indexSnapshot{
		Algorithm: AlgorithmHNSW,
		Metric:    h.metric,
		Dimension: h.dimension,
		Vectors:   h.vectors,
		Levels:    h.levels,
		Links:     h.links,
		EntryPos:  h.entryPos,
		MaxLevel:  h.maxLevel,
	}
}
