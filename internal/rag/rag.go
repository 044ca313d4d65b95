// Package rag is the high-level retrieval facade over the vector store. It
// owns document identity and chunking policy so callers deal in whole
// documents, not chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/chunking"
	"github.com/bidwerx/tendervec/internal/vectorstore"
)

// Sentinel errors.
var (
	// ErrInvalidConfig indicates missing collaborators.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyContent indicates a document with no usable text.
	ErrEmptyContent = errors.New("empty document content")
)

// answerContextSize is how many top results feed the extractive answer.
const answerContextSize = 3

// Document is a caller-supplied document before chunking.
type Document struct {
	// ID is optional; a uuid is assigned when empty.
	ID string

	Content  string
	Metadata map[string]interface{}
	Source   string
}

// Answer is a retrieval-grounded response to a free-text question.
type Answer struct {
	Query   string                     `json:"query"`
	Answer  string                     `json:"answer"`
	Sources []vectorstore.SearchResult `json:"sources"`
}

// Service is the retrieval facade.
type Service struct {
	store   *vectorstore.Engine
	chunker *chunking.Chunker
	logger  *zap.Logger
	tracer  trace.Tracer
}

// New creates the facade.
func New(store *vectorstore.Engine, chunker *chunking.Chunker, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrInvalidConfig)
	}
	if chunker == nil {
		return nil, fmt.Errorf("%w: chunker is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		chunker: chunker,
		logger:  logger,
		tracer:  otel.Tracer("tendervec/rag"),
	}, nil
}

// AddDocument chunks and indexes one document, returning its id. Documents
// that fit a single chunk are stored whole under the document id; longer
// documents are stored as chunks referencing it.
func (s *Service) AddDocument(ctx context.Context, doc Document) (string, error) {
	ctx, span := s.tracer.Start(ctx, "rag.add_document")
	defer span.End()

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	span.SetAttributes(attribute.String("document_id", id))

	chunks := s.chunker.NewDocuments(id, doc.Content, doc.Source, doc.Metadata)
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: document %q", ErrEmptyContent, id)
	}
	if len(chunks) == 1 {
		chunks[0].ID = id
		chunks[0].ChunkIndex = nil
		chunks[0].ParentDocumentID = ""
		delete(chunks[0].Metadata, "chunk_count")
	}

	if err := s.store.AddDocuments(ctx, chunks); err != nil {
		return "", err
	}
	s.logger.Debug("document indexed",
		zap.String("document_id", id),
		zap.Int("chunks", len(chunks)))
	return id, nil
}

// BuildIndex indexes a collection of documents and returns how many were
// stored. A document failure aborts the build.
func (s *Service) BuildIndex(ctx context.Context, docs []Document) (int, error) {
	ctx, span := s.tracer.Start(ctx, "rag.build_index",
		trace.WithAttributes(attribute.Int("document_count", len(docs))))
	defer span.End()

	for i, d := range docs {
		if _, err := s.AddDocument(ctx, d); err != nil {
			return i, fmt.Errorf("indexing document %d: %w", i, err)
		}
	}
	return len(docs), nil
}

// UpdateDocument replaces a document's content, re-chunking as needed.
func (s *Service) UpdateDocument(ctx context.Context, doc Document) error {
	ctx, span := s.tracer.Start(ctx, "rag.update_document")
	defer span.End()

	if doc.ID == "" {
		return fmt.Errorf("%w: update requires a document id", ErrEmptyContent)
	}
	if _, err := s.RemoveDocument(ctx, doc.ID); err != nil {
		return err
	}
	_, err := s.AddDocument(ctx, doc)
	return err
}

// RemoveDocument deletes a document and every chunk derived from it.
// Returns false when nothing was stored under the id.
func (s *Service) RemoveDocument(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "rag.remove_document",
		trace.WithAttributes(attribute.String("document_id", id)))
	defer span.End()

	removed, err := s.store.DeleteDocument(ctx, id)
	if err != nil {
		return removed, err
	}
	chunks := s.store.ListDocuments(ctx, vectorstore.ListOptions{
		Filters: map[string]interface{}{"parent_document_id": id},
	})
	for _, stored := range chunks {
		ok, err := s.store.DeleteDocument(ctx, stored.ID)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}
	return removed, nil
}

// Search runs a similarity search.
func (s *Service) Search(ctx context.Context, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	return s.store.Search(ctx, query, opts)
}

// QueryWithAnswer searches and composes an extractive answer from the top
// matching passages. No generation model is involved; the answer quotes
// stored content.
func (s *Service) QueryWithAnswer(ctx context.Context, query string) (*Answer, error) {
	ctx, span := s.tracer.Start(ctx, "rag.query_with_answer")
	defer span.End()

	results, err := s.store.Search(ctx, query, vectorstore.SearchOptions{TopK: answerContextSize})
	if err != nil {
		return nil, err
	}

	answer := &Answer{Query: query, Sources: results}
	if len(results) == 0 {
		answer.Answer = "No relevant documents were found for this query."
		return answer, nil
	}

	var sb strings.Builder
	sb.WriteString("Based on the indexed documents:\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "\n[%d] (score %.3f) %s\n", r.Rank, r.SimilarityScore, r.Document.Content)
	}
	answer.Answer = sb.String()
	return answer, nil
}

// Stats reports the underlying store statistics.
func (s *Service) Stats(ctx context.Context) vectorstore.Stats {
	return s.store.GetStats(ctx)
}
