package vectorstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/embeddings"
)

func newTestEngine(t *testing.T, cfg IndexConfig) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, newHashEmbedder(32), zap.NewNop())
	require.NoError(t, err)
	return engine
}

func doc(id, content string, metadata map[string]interface{}) *VectorDocument {
	return &VectorDocument{ID: id, Content: content, Metadata: metadata}
}

func TestEngineAddAndSearch(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	err := engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "highway bridge construction project", nil),
		doc("d2", "hospital software procurement tender", nil),
		doc("d3", "school catering services contract", nil),
	})
	require.NoError(t, err)

	results, err := engine.Search(ctx, "bridge construction", SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "d1", results[0].Document.ID)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.LessOrEqual(t, r.SimilarityScore, results[i-1].SimilarityScore)
		}
	}
}

func TestEngineSearchEmptyStore(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})

	results, err := engine.Search(context.Background(), "anything", SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineAddRejectsEmptyBatch(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})

	err := engine.AddDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDocuments)

	err = engine.AddDocuments(context.Background(), []*VectorDocument{{Content: "no id"}})
	assert.ErrorIs(t, err, ErrEmptyDocuments)
}

func TestEngineMetadataFilter(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	err := engine.AddDocuments(ctx, []*VectorDocument{
		doc("o1", "road maintenance tender", map[string]interface{}{"type": "opportunity"}),
		doc("o2", "road resurfacing tender", map[string]interface{}{"type": "opportunity"}),
		doc("o3", "road lighting tender", map[string]interface{}{"type": "opportunity"}),
		doc("p1", "road maintenance proposal draft", map[string]interface{}{"type": "proposal"}),
		doc("p2", "road resurfacing proposal draft", map[string]interface{}{"type": "proposal"}),
	})
	require.NoError(t, err)

	results, err := engine.Search(ctx, "road tender", SearchOptions{
		TopK:    10,
		Filters: map[string]interface{}{"type": "opportunity"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "opportunity", r.Document.Metadata["type"])
	}
}

func TestEngineSourceFilter(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	a := doc("a", "shared wording here", nil)
	a.Source = "crawler"
	b := doc("b", "shared wording here", nil)
	b.Source = "upload"
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{a, b}))

	results, err := engine.Search(ctx, "shared wording", SearchOptions{
		TopK:    5,
		Filters: map[string]interface{}{"source": "upload"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Document.ID)
}

func TestEngineDeleteDocument(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "alpha content", nil),
		doc("d2", "beta content", nil),
		doc("d3", "gamma content", nil),
	}))

	deleted, err := engine.DeleteDocument(ctx, "d2")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Second delete of the same id reports not found.
	deleted, err = engine.DeleteDocument(ctx, "d2")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = engine.DeleteDocument(ctx, "never-existed")
	require.NoError(t, err)
	assert.False(t, deleted)

	results, err := engine.Search(ctx, "beta content", SearchOptions{TopK: 10})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "d2", r.Document.ID)
	}

	stats := engine.GetStats(ctx)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 3, stats.TotalVectors) // tombstone still occupies the index

	require.NoError(t, engine.RebuildIndex(ctx))
	stats = engine.GetStats(ctx)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalVectors)
}

func TestEngineUpdateDocument(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "original wording about pipelines", nil),
	}))
	original, ok := engine.GetDocument(ctx, "d1")
	require.True(t, ok)

	require.NoError(t, engine.UpdateDocument(ctx, doc("d1", "revised wording about railways", nil)))

	updated, ok := engine.GetDocument(ctx, "d1")
	require.True(t, ok)
	assert.Equal(t, "revised wording about railways", updated.Content)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(original.UpdatedAt) || updated.UpdatedAt.Equal(original.UpdatedAt))

	results, err := engine.Search(ctx, "revised railways", SearchOptions{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "d1", results[0].Document.ID)

	// No duplicate results for the updated id.
	seen := 0
	for _, r := range results {
		if r.Document.ID == "d1" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestEngineOverwriteSameID(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{doc("d1", "first version", nil)}))
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{doc("d1", "second version", nil)}))

	stats := engine.GetStats(ctx)
	assert.Equal(t, 1, stats.TotalDocuments)

	results, err := engine.Search(ctx, "version", SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Document.Content)
}

func TestEngineMinSimilarity(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "quantum entanglement research", nil),
		doc("d2", "completely unrelated gardening notes", nil),
	}))

	results, err := engine.Search(ctx, "quantum entanglement research", SearchOptions{
		TopK:          5,
		MinSimilarity: 0.9,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].Document.ID)
}

func TestEngineRejectsWrongWidthEmbedding(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})

	bad := doc("d1", "content", nil)
	bad.Embedding = []float32{1, 2, 3}
	err := engine.AddDocuments(context.Background(), []*VectorDocument{bad})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEngineDimensionCorrectedFromProvider(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{Dimension: 768})
	stats := engine.GetStats(context.Background())
	assert.Equal(t, 32, stats.Dimension)
	assert.Equal(t, "hash-test-embedder", stats.EmbeddingModel)
}

func TestEngineAlgorithms(t *testing.T) {
	contents := []string{
		"bridge construction over river crossing",
		"railway signalling upgrade works",
		"municipal waste collection services",
		"data centre cooling installation",
		"primary school extension building",
		"coastal flood defence engineering",
		"fibre broadband rollout programme",
		"hospital ward refurbishment project",
		"street lighting led replacement",
		"water treatment plant expansion",
	}

	for _, alg := range []string{AlgorithmFlatIP, AlgorithmFlatL2, AlgorithmIVFFlat, AlgorithmHNSW} {
		t.Run(alg, func(t *testing.T) {
			engine := newTestEngine(t, IndexConfig{
				Algorithm: alg,
				NList:     4,
				NProbe:    4,
			})
			ctx := context.Background()

			docs := make([]*VectorDocument, len(contents))
			for i, c := range contents {
				docs[i] = doc(string(rune('a'+i)), c, nil)
			}
			require.NoError(t, engine.AddDocuments(ctx, docs))

			results, err := engine.Search(ctx, "bridge construction over river crossing", SearchOptions{TopK: 3})
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "a", results[0].Document.ID)
		})
	}
}

func TestEnginePersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := IndexConfig{
		StoreOnDisk:  true,
		IndexPath:    filepath.Join(dir, "index.bin"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
	}
	ctx := context.Background()

	engine := newTestEngine(t, cfg)
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "persisted document about ferries", map[string]interface{}{"type": "opportunity"}),
		doc("d2", "persisted document about tunnels", map[string]interface{}{"type": "proposal"}),
	}))
	require.NoError(t, engine.Close())

	reopened := newTestEngine(t, cfg)
	stats := reopened.GetStats(ctx)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalVectors)

	results, err := reopened.Search(ctx, "ferries", SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].Document.ID)
	assert.Equal(t, "opportunity", results[0].Document.Metadata["type"])
}

func TestEnginePersistedDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := IndexConfig{
		StoreOnDisk:  true,
		IndexPath:    filepath.Join(dir, "index.bin"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
	}

	engine := newTestEngine(t, cfg)
	require.NoError(t, engine.AddDocuments(context.Background(), []*VectorDocument{
		doc("d1", "some content", nil),
	}))
	require.NoError(t, engine.Close())

	_, err := NewEngine(cfg, newHashEmbedder(64), zap.NewNop())
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEngineCorruptIndexFileRebuilds(t *testing.T) {
	dir := t.TempDir()
	cfg := IndexConfig{
		StoreOnDisk:  true,
		IndexPath:    filepath.Join(dir, "index.bin"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
	}
	ctx := context.Background()

	engine := newTestEngine(t, cfg)
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "document that must survive", nil),
	}))
	require.NoError(t, engine.Close())

	require.NoError(t, os.WriteFile(cfg.IndexPath, []byte("not a gob stream"), 0o644))

	reopened := newTestEngine(t, cfg)
	results, err := reopened.Search(ctx, "survive", SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].Document.ID)
}

func TestEngineCorruptMetadataStartsFresh(t *testing.T) {
	dir := t.TempDir()
	cfg := IndexConfig{
		StoreOnDisk:  true,
		IndexPath:    filepath.Join(dir, "index.bin"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
	}
	ctx := context.Background()

	engine := newTestEngine(t, cfg)
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "document lost to corruption", nil),
	}))
	require.NoError(t, engine.Close())

	require.NoError(t, os.WriteFile(cfg.MetadataPath, []byte("{not valid json"), 0o644))

	reopened := newTestEngine(t, cfg)
	stats := reopened.GetStats(ctx)
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Equal(t, 0, stats.TotalVectors)
	assert.True(t, stats.IsReady)

	// The fresh engine accepts writes and persists over the corrupt state.
	require.NoError(t, reopened.AddDocuments(ctx, []*VectorDocument{
		doc("d2", "document written after recovery", nil),
	}))
	require.NoError(t, reopened.Close())

	again := newTestEngine(t, cfg)
	assert.Equal(t, 1, again.GetStats(ctx).TotalDocuments)
}

func TestEngineSidecarFormat(t *testing.T) {
	dir := t.TempDir()
	cfg := IndexConfig{
		StoreOnDisk:  true,
		IndexPath:    filepath.Join(dir, "index.bin"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
	}
	ctx := context.Background()

	engine := newTestEngine(t, cfg)
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "first", nil),
		doc("d2", "second", nil),
	}))
	_, err := engine.DeleteDocument(ctx, "d1")
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	data, err := os.ReadFile(cfg.MetadataPath)
	require.NoError(t, err)

	var sidecar struct {
		Documents []*VectorDocument `json:"documents"`
		IDMapping []*string         `json:"id_mapping"`
	}
	require.NoError(t, json.Unmarshal(data, &sidecar))

	require.Len(t, sidecar.Documents, 1)
	assert.Equal(t, "d2", sidecar.Documents[0].ID)
	require.Len(t, sidecar.IDMapping, 2)
	assert.Nil(t, sidecar.IDMapping[0])
	require.NotNil(t, sidecar.IDMapping[1])
	assert.Equal(t, "d2", *sidecar.IDMapping[1])
}

func TestEngineShortEmbeddingBatch(t *testing.T) {
	engine, err := NewEngine(IndexConfig{}, &shortEmbedder{newHashEmbedder(32)}, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	err = engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "first", nil),
		doc("d2", "second", nil),
	})
	assert.ErrorIs(t, err, embeddings.ErrEmbeddingFailed)
	assert.Equal(t, 0, engine.GetStats(ctx).TotalDocuments)
}

func TestEngineListDocumentsInsertionOrder(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "first", nil),
		doc("d2", "second", nil),
	}))
	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d3", "third", nil),
	}))
	_, err := engine.DeleteDocument(ctx, "d2")
	require.NoError(t, err)

	docs := engine.ListDocuments(ctx, ListOptions{})
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, "d3", docs[1].ID)
}

func TestEngineListDocumentsPagination(t *testing.T) {
	engine := newTestEngine(t, IndexConfig{})
	ctx := context.Background()

	require.NoError(t, engine.AddDocuments(ctx, []*VectorDocument{
		doc("d1", "first", map[string]interface{}{"type": "a"}),
		doc("d2", "second", map[string]interface{}{"type": "b"}),
		doc("d3", "third", map[string]interface{}{"type": "a"}),
		doc("d4", "fourth", map[string]interface{}{"type": "a"}),
	}))

	page := engine.ListDocuments(ctx, ListOptions{Limit: 2, Offset: 1})
	require.Len(t, page, 2)
	assert.Equal(t, "d2", page[0].ID)
	assert.Equal(t, "d3", page[1].ID)

	typed := engine.ListDocuments(ctx, ListOptions{Filters: map[string]interface{}{"type": "a"}})
	require.Len(t, typed, 3)
	for _, d := range typed {
		assert.Equal(t, "a", d.Metadata["type"])
	}
}
