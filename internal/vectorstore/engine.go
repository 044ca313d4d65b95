package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/embeddings"
)

// defaultTopK is the result count used when a search does not specify one.
const defaultTopK = 5

// overFetchFactor widens the index probe when metadata filters are active,
// since filtering happens after the ANN search.
const overFetchFactor = 2

// SearchOptions controls a similarity search.
type SearchOptions struct {
	// TopK is the maximum number of results. Defaults to 5.
	TopK int

	// Filters restricts results to documents matching every entry.
	// "source" and "parent_document_id" address the first-class fields;
	// other keys are metadata equality checks.
	Filters map[string]interface{}

	// MinSimilarity drops results scoring below the threshold. Zero means
	// no threshold.
	MinSimilarity float32
}

// Engine is the vector index engine. It owns the ANN index, the append-only
// position-to-id mapping, and the document store, and keeps them consistent
// behind a single write lock.
type Engine struct {
	cfg      IndexConfig
	provider embeddings.Provider
	logger   *zap.Logger
	tracer   trace.Tracer

	mu        sync.RWMutex
	index     vectorIndex
	documents map[string]*VectorDocument
	idMapping []string // position -> document id, "" after soft delete
	ready     bool
}

// NewEngine creates an engine for the given provider. The configured
// dimension is corrected from the provider when they disagree. When
// persistence is enabled and a store exists on disk it is loaded; a
// persisted dimension incompatible with the provider fails construction
// with ErrDimensionMismatch rather than serving mixed-width vectors.
func NewEngine(cfg IndexConfig, provider embeddings.Provider, logger *zap.Logger) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.ApplyDefaults()
	if d := provider.Dimension(); d > 0 && d != cfg.Dimension {
		logger.Warn("correcting configured dimension to provider output",
			zap.Int("configured", cfg.Dimension),
			zap.Int("provider", d),
			zap.String("model", provider.ModelName()))
		cfg.Dimension = d
	}
	cfg.EmbeddingModel = provider.ModelName()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		provider:  provider,
		logger:    logger,
		tracer:    otel.Tracer("tendervec/vectorstore"),
		documents: make(map[string]*VectorDocument),
	}

	if cfg.StoreOnDisk {
		loaded, err := e.load()
		if err != nil {
			return nil, err
		}
		if loaded {
			e.logger.Info("vector store loaded from disk",
				zap.String("algorithm", cfg.Algorithm),
				zap.Int("documents", len(e.documents)),
				zap.Int("vectors", e.index.Len()))
		}
	}
	if e.index == nil {
		idx, err := newIndex(cfg)
		if err != nil {
			return nil, err
		}
		e.index = idx
	}

	e.ready = true
	return e, nil
}

// AddDocuments embeds any documents lacking vectors and inserts the batch.
// The batch is atomic: validation and embedding happen before any state is
// touched, so a failure leaves the store unchanged. An existing id is
// overwritten; its earlier index positions become stale and are deduplicated
// at search time and reclaimed by RebuildIndex.
func (e *Engine) AddDocuments(ctx context.Context, docs []*VectorDocument) error {
	ctx, span := e.tracer.Start(ctx, "vectorstore.add_documents",
		trace.WithAttributes(attribute.Int("document_count", len(docs))))
	defer span.End()

	if len(docs) == 0 {
		return ErrEmptyDocuments
	}
	for i, doc := range docs {
		if doc == nil || doc.ID == "" {
			return fmt.Errorf("%w: document at position %d is nil or has no id", ErrEmptyDocuments, i)
		}
	}

	// Embed outside the lock.
	prepared := make([]*VectorDocument, len(docs))
	var pending []int
	for i, doc := range docs {
		prepared[i] = doc.Clone()
		if len(prepared[i].Embedding) == 0 {
			pending = append(pending, i)
		}
	}
	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		texts := make([]string, 0, end-start)
		for _, i := range pending[start:end] {
			texts = append(texts, prepared[i].Content)
		}
		vecs, err := e.provider.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch: %w", err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("%w: provider returned %d vectors for %d inputs",
				embeddings.ErrEmbeddingFailed, len(vecs), len(texts))
		}
		for j, i := range pending[start:end] {
			prepared[i].Embedding = vecs[j]
		}
	}

	vectors := make([][]float32, len(prepared))
	for i, doc := range prepared {
		if len(doc.Embedding) != e.cfg.Dimension {
			return fmt.Errorf("%w: document %q has dimension %d, index expects %d",
				ErrDimensionMismatch, doc.ID, len(doc.Embedding), e.cfg.Dimension)
		}
		if e.cfg.Metric == MetricCosine {
			doc.Embedding = normalized(doc.Embedding)
		}
		vectors[i] = doc.Embedding
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return ErrNotReady
	}

	now := time.Now().UTC()
	if err := e.index.Add(vectors); err != nil {
		return err
	}
	for _, doc := range prepared {
		if existing, ok := e.documents[doc.ID]; ok && doc.CreatedAt.IsZero() {
			doc.CreatedAt = existing.CreatedAt
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		e.documents[doc.ID] = doc
		e.idMapping = append(e.idMapping, doc.ID)
	}

	e.logger.Debug("documents added",
		zap.Int("count", len(prepared)),
		zap.Int("total_vectors", e.index.Len()))

	return e.persistLocked()
}

// Search embeds the query and returns up to TopK live documents matching
// the filters, ranked by similarity. Ranks are 1-based in acceptance order.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	ctx, span := e.tracer.Start(ctx, "vectorstore.search",
		trace.WithAttributes(
			attribute.Int("top_k", opts.TopK),
			attribute.Int("filter_count", len(opts.Filters))))
	defer span.End()

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVec, err := e.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(queryVec) != e.cfg.Dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index expects %d",
			ErrDimensionMismatch, len(queryVec), e.cfg.Dimension)
	}
	if e.cfg.Metric == MetricCosine {
		queryVec = normalized(queryVec)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready {
		return nil, ErrNotReady
	}
	if e.index.Len() == 0 {
		return []SearchResult{}, nil
	}

	fetch := topK
	if len(opts.Filters) > 0 {
		fetch = topK * overFetchFactor
	}
	if fetch > e.index.Len() {
		fetch = e.index.Len()
	}

	positions, scores := e.index.Search(queryVec, fetch)

	results := make([]SearchResult, 0, topK)
	seen := make(map[string]bool, fetch)
	for i, pos := range positions {
		if pos < 0 || pos >= len(e.idMapping) {
			continue
		}
		id := e.idMapping[pos]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		doc, ok := e.documents[id]
		if !ok {
			continue
		}
		if opts.MinSimilarity != 0 && scores[i] < opts.MinSimilarity {
			continue
		}
		if len(opts.Filters) > 0 && !matchesFilter(doc, opts.Filters) {
			continue
		}
		results = append(results, SearchResult{
			Document:        doc.Clone(),
			SimilarityScore: scores[i],
			Rank:            len(results) + 1,
		})
		if len(results) == topK {
			break
		}
	}
	return results, nil
}

// DeleteDocument soft-deletes a document. The vector stays in the index as
// a tombstone until RebuildIndex. Returns false when the id is unknown,
// including on repeated deletion.
func (e *Engine) DeleteDocument(ctx context.Context, id string) (bool, error) {
	_, span := e.tracer.Start(ctx, "vectorstore.delete_document",
		trace.WithAttributes(attribute.String("document_id", id)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return false, ErrNotReady
	}
	if _, ok := e.documents[id]; !ok {
		return false, nil
	}
	for pos, mapped := range e.idMapping {
		if mapped == id {
			e.idMapping[pos] = ""
		}
	}
	delete(e.documents, id)

	e.logger.Debug("document deleted", zap.String("document_id", id))
	if err := e.persistLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// UpdateDocument replaces a document's content and metadata, re-embedding
// unless the caller supplied a vector. The original creation time is kept.
func (e *Engine) UpdateDocument(ctx context.Context, doc *VectorDocument) error {
	ctx, span := e.tracer.Start(ctx, "vectorstore.update_document")
	defer span.End()

	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document is nil or has no id", ErrEmptyDocuments)
	}

	updated := doc.Clone()
	e.mu.RLock()
	if existing, ok := e.documents[doc.ID]; ok && updated.CreatedAt.IsZero() {
		updated.CreatedAt = existing.CreatedAt
	}
	e.mu.RUnlock()

	if _, err := e.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	return e.AddDocuments(ctx, []*VectorDocument{updated})
}

// RebuildIndex compacts the store: live documents are re-inserted into a
// fresh index in their original insertion order and tombstoned positions
// are dropped. This is the only operation that reclaims index space.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	_, span := e.tracer.Start(ctx, "vectorstore.rebuild_index")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return ErrNotReady
	}

	before := e.index.Len()
	if err := e.rebuildLocked(); err != nil {
		return err
	}
	e.logger.Info("index rebuilt",
		zap.Int("vectors_before", before),
		zap.Int("vectors_after", e.index.Len()))
	return e.persistLocked()
}

// rebuildLocked replaces the index and mapping from the live document set,
// preserving first-insertion order. Caller holds the write lock.
func (e *Engine) rebuildLocked() error {
	idx, err := newIndex(e.cfg)
	if err != nil {
		return err
	}

	ids := e.liveIDsLocked()
	mapping := make([]string, 0, len(ids))
	vectors := make([][]float32, 0, len(ids))
	for _, id := range ids {
		doc := e.documents[id]
		if len(doc.Embedding) != e.cfg.Dimension {
			return fmt.Errorf("%w: stored document %q has dimension %d",
				ErrDimensionMismatch, id, len(doc.Embedding))
		}
		vectors = append(vectors, doc.Embedding)
		mapping = append(mapping, id)
	}
	if len(vectors) > 0 {
		if err := idx.Add(vectors); err != nil {
			return err
		}
	}

	e.index = idx
	e.idMapping = mapping
	return nil
}

// liveIDsLocked returns live document ids in first-insertion order.
func (e *Engine) liveIDsLocked() []string {
	seen := make(map[string]bool, len(e.documents))
	ids := make([]string, 0, len(e.documents))
	for _, id := range e.idMapping {
		if id == "" || seen[id] {
			continue
		}
		if _, ok := e.documents[id]; !ok {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// GetDocument returns a copy of the document, or false when it does not
// exist or was deleted.
func (e *Engine) GetDocument(ctx context.Context, id string) (*VectorDocument, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.documents[id]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// ListOptions controls metadata-only listing. Zero Limit means no limit.
type ListOptions struct {
	Limit   int
	Offset  int
	Filters map[string]interface{}
}

// ListDocuments returns copies of live documents in insertion order. This
// is a metadata scan; the index is not touched.
func (e *Engine) ListDocuments(ctx context.Context, opts ListOptions) []*VectorDocument {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*VectorDocument, 0)
	skipped := 0
	for _, id := range e.liveIDsLocked() {
		doc := e.documents[id]
		if len(opts.Filters) > 0 && !matchesFilter(doc, opts.Filters) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, doc.Clone())
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out
}

// GetStats returns engine statistics. TotalVectors counts tombstones;
// TotalDocuments does not.
func (e *Engine) GetStats(ctx context.Context) Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		TotalDocuments: len(e.documents),
		TotalVectors:   e.index.Len(),
		Dimension:      e.cfg.Dimension,
		Algorithm:      e.cfg.Algorithm,
		EmbeddingModel: e.cfg.EmbeddingModel,
		IsReady:        e.ready,
	}
}

// Close flushes the store to disk when persistence is enabled. The
// embedding provider is owned by the caller and is not closed here.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	e.ready = false
	return e.persistLocked()
}
