package vectorstore

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// hashEmbedder is a deterministic test embedder. Each token hashes to a
// bucket, so texts sharing words produce similar vectors and identical
// texts produce identical vectors.
type hashEmbedder struct {
	dim int
}

func newHashEmbedder(dim int) *hashEmbedder {
	return &hashEmbedder{dim: dim}
}

func (h *hashEmbedder) embed(text string) []float32 {
	v := make([]float32, h.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		v[int(f.Sum32())%h.dim]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range v {
			v[i] /= norm
		}
	}
	return v
}

func (h *hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h *hashEmbedder) Dimension() int    { return h.dim }
func (h *hashEmbedder) ModelName() string { return "hash-test-embedder" }
func (h *hashEmbedder) Close() error      { return nil }

// shortEmbedder drops the last vector of every batch to simulate a backend
// returning fewer embeddings than inputs.
type shortEmbedder struct {
	*hashEmbedder
}

func (s *shortEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.hashEmbedder.EmbedDocuments(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}
