package vectorstore

import "time"

// VectorDocument is a document with an optional precomputed embedding.
//
// Invariants: ID is unique across the store; chunks derived from one source
// document share ParentDocumentID and carry increasing ChunkIndex values.
type VectorDocument struct {
	// ID is the unique document identifier, caller- or chunk-derived.
	ID string `json:"id"`

	// Content is the text content.
	Content string `json:"content"`

	// Embedding is the vector representation. Filled lazily by the engine
	// when absent.
	Embedding []float32 `json:"embedding,omitempty"`

	// Metadata contains key-value pairs for filtering. Includes a "type"
	// discriminator and domain foreign keys.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Source is a provenance tag.
	Source string `json:"source,omitempty"`

	// ChunkIndex is the ordinal within the parent document, nil for
	// non-chunked documents.
	ChunkIndex *int `json:"chunk_index,omitempty"`

	// ParentDocumentID back-references the logical parent for chunks.
	// No ownership is implied.
	ParentDocumentID string `json:"parent_document_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the document.
func (d *VectorDocument) Clone() *VectorDocument {
	c := *d
	if d.Embedding != nil {
		c.Embedding = make([]float32, len(d.Embedding))
		copy(c.Embedding, d.Embedding)
	}
	if d.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	if d.ChunkIndex != nil {
		idx := *d.ChunkIndex
		c.ChunkIndex = &idx
	}
	return &c
}

// SearchResult is a matched document with its similarity score.
type SearchResult struct {
	// Document is the matched document.
	Document *VectorDocument `json:"document"`

	// SimilarityScore is metric-defined: cosine scores are in [-1, 1],
	// euclidean distances are mapped to (0, 1] via 1/(1+d). Higher is
	// always more similar.
	SimilarityScore float32 `json:"similarity_score"`

	// Rank is 1-based and assigned by acceptance order after filtering,
	// not by raw index order.
	Rank int `json:"rank"`
}

// Stats describes the engine state.
type Stats struct {
	// TotalDocuments is the number of live (non-deleted) documents.
	TotalDocuments int `json:"total_documents"`

	// TotalVectors is the underlying index vector count. May exceed
	// TotalDocuments due to soft deletes.
	TotalVectors int `json:"total_vectors"`

	Dimension      int    `json:"dimension"`
	Algorithm      string `json:"algorithm"`
	EmbeddingModel string `json:"embedding_model"`
	IsReady        bool   `json:"is_ready"`
}
