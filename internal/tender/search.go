package tender

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/vectorstore"
)

// OpportunityHit is a hydrated opportunity search result.
type OpportunityHit struct {
	Opportunity *Opportunity `json:"opportunity"`
	Score       float32      `json:"score"`
}

// WonBidHit is a hydrated winning-bid search result.
type WonBidHit struct {
	WonBid *WonBid `json:"won_bid"`
	Score  float32 `json:"score"`
}

// ProjectDocumentHit is a hydrated project-document search result.
type ProjectDocumentHit struct {
	Document *ProjectDocument `json:"document"`
	Score    float32          `json:"score"`
}

// SearchOpportunities runs a type-filtered similarity search and hydrates
// each hit through the repository. Hits whose entity no longer exists are
// dropped; a stale index is not an error.
func (s *Service) SearchOpportunities(ctx context.Context, query string, topK int) ([]OpportunityHit, error) {
	ctx, span := s.tracer.Start(ctx, "tender.search_opportunities",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	results, err := s.typedSearch(ctx, query, TypeOpportunity, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]OpportunityHit, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		id := metadataString(r.Document.Metadata, "opportunity_id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		opp, err := s.repo.GetOpportunity(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.dropStaleHit(TypeOpportunity, id, r.Document.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrating opportunity %q: %w", id, err)
		}
		hits = append(hits, OpportunityHit{Opportunity: opp, Score: r.SimilarityScore})
	}
	return hits, nil
}

// FindSimilarWonBids searches historical winning bids.
func (s *Service) FindSimilarWonBids(ctx context.Context, query string, topK int) ([]WonBidHit, error) {
	ctx, span := s.tracer.Start(ctx, "tender.find_similar_won_bids",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	results, err := s.typedSearch(ctx, query, TypeWonBid, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]WonBidHit, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		id := metadataString(r.Document.Metadata, "won_bid_id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		bid, err := s.repo.GetWonBid(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.dropStaleHit(TypeWonBid, id, r.Document.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrating won bid %q: %w", id, err)
		}
		hits = append(hits, WonBidHit{WonBid: bid, Score: r.SimilarityScore})
	}
	return hits, nil
}

// SearchProjectDocuments searches project documentation. Chunked documents
// are collapsed to one hit per source document, keeping the best score.
func (s *Service) SearchProjectDocuments(ctx context.Context, query string, topK int) ([]ProjectDocumentHit, error) {
	ctx, span := s.tracer.Start(ctx, "tender.search_project_documents",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	results, err := s.typedSearch(ctx, query, TypeProjectDocument, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]ProjectDocumentHit, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		id := metadataString(r.Document.Metadata, "project_document_id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		doc, err := s.repo.GetProjectDocument(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.dropStaleHit(TypeProjectDocument, id, r.Document.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrating project document %q: %w", id, err)
		}
		hits = append(hits, ProjectDocumentHit{Document: doc, Score: r.SimilarityScore})
	}
	return hits, nil
}

func (s *Service) typedSearch(ctx context.Context, query, entityType string, topK int) ([]vectorstore.SearchResult, error) {
	return s.store.Search(ctx, query, vectorstore.SearchOptions{
		TopK:    topK,
		Filters: map[string]interface{}{"type": entityType},
	})
}

func (s *Service) dropStaleHit(entityType, entityID, docID string) {
	s.logger.Debug("dropped stale index hit",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("document_id", docID))
}

func metadataString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
