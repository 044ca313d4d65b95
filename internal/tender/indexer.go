package tender

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/chunking"
	"github.com/bidwerx/tendervec/internal/vectorstore"
)

// Chunk sizing per entity type. Proposals are long-form prose; project
// documents are denser reference material and get tighter windows.
const (
	proposalChunkSize     = 1500
	proposalChunkOverlap  = 150
	documentChunkSize     = 1200
	documentChunkOverlap  = 120
	defaultReindexBatch   = 50
	recommendationResults = 5
)

// Service is the integration layer between relational tender records and
// the vector store.
type Service struct {
	repo  Repository
	store *vectorstore.Engine

	proposalChunker *chunking.Chunker
	documentChunker *chunking.Chunker

	logger    *zap.Logger
	tracer    trace.Tracer
	batchSize int
}

// NewService creates the integration service.
func NewService(repo Repository, store *vectorstore.Engine, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	proposalChunker, err := chunking.New(chunking.Config{
		ChunkSize:    proposalChunkSize,
		ChunkOverlap: proposalChunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	documentChunker, err := chunking.New(chunking.Config{
		ChunkSize:    documentChunkSize,
		ChunkOverlap: documentChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:            repo,
		store:           store,
		proposalChunker: proposalChunker,
		documentChunker: documentChunker,
		logger:          logger,
		tracer:          otel.Tracer("tendervec/tender"),
		batchSize:       defaultReindexBatch,
	}, nil
}

// Document id helpers. Ids are deterministic so re-indexing an entity
// overwrites its previous documents instead of duplicating them.

func opportunityDocID(id string) string     { return "opportunity_" + id }
func requirementDocID(id string) string     { return "requirement_" + id }
func proposalDocID(id string) string        { return "proposal_" + id }
func wonBidDocID(id string) string          { return "won_bid_" + id }
func projectDocumentDocID(id string) string { return "project_document_" + id }

// IndexOpportunity stores a primary document for the opportunity plus one
// document per requirement, each back-referencing the primary.
func (s *Service) IndexOpportunity(ctx context.Context, opp *Opportunity) error {
	ctx, span := s.tracer.Start(ctx, "tender.index_opportunity",
		trace.WithAttributes(attribute.String("opportunity_id", opp.ID)))
	defer span.End()

	primaryID := opportunityDocID(opp.ID)
	docs := []*vectorstore.VectorDocument{{
		ID:      primaryID,
		Content: composeText(opp.Title, opp.Description),
		Source:  TypeOpportunity,
		Metadata: map[string]interface{}{
			"type":           TypeOpportunity,
			"opportunity_id": opp.ID,
			"organization":   opp.Organization,
			"category":       opp.Category,
			"status":         opp.Status,
			"country":        opp.Country,
			"region":         opp.Region,
		},
	}}

	for _, req := range opp.Requirements {
		docs = append(docs, &vectorstore.VectorDocument{
			ID:               requirementDocID(req.ID),
			Content:          composeText(req.Text, req.Description),
			Source:           TypeRequirement,
			ParentDocumentID: primaryID,
			Metadata: map[string]interface{}{
				"type":           TypeRequirement,
				"requirement_id": req.ID,
				"opportunity_id": opp.ID,
				"category":       req.Category,
				"priority":       req.Priority,
				"mandatory":      req.Mandatory,
			},
		})
	}

	return s.store.AddDocuments(ctx, docs)
}

// IndexProposal chunks and stores a proposal's text.
func (s *Service) IndexProposal(ctx context.Context, p *Proposal) error {
	ctx, span := s.tracer.Start(ctx, "tender.index_proposal",
		trace.WithAttributes(attribute.String("proposal_id", p.ID)))
	defer span.End()

	content := composeText(p.Title, p.ExecutiveSummary, p.Content)
	docs := s.proposalChunker.NewDocuments(proposalDocID(p.ID), content, TypeProposal,
		map[string]interface{}{
			"type":           TypeProposal,
			"proposal_id":    p.ID,
			"opportunity_id": p.OpportunityID,
			"status":         p.Status,
		})
	if len(docs) == 0 {
		s.logger.Warn("proposal has no indexable content", zap.String("proposal_id", p.ID))
		return nil
	}
	return s.store.AddDocuments(ctx, docs)
}

// IndexWonBid stores one document composed from the winning bid's title,
// description, winning factors and lessons learned.
func (s *Service) IndexWonBid(ctx context.Context, b *WonBid) error {
	ctx, span := s.tracer.Start(ctx, "tender.index_won_bid",
		trace.WithAttributes(attribute.String("won_bid_id", b.ID)))
	defer span.End()

	parts := []string{b.ProjectTitle, b.ProjectDescription}
	if len(b.WinningFactors) > 0 {
		parts = append(parts, "Winning factors: "+strings.Join(b.WinningFactors, ", "))
	}
	if len(b.LessonsLearned) > 0 {
		parts = append(parts, "Lessons learned: "+strings.Join(b.LessonsLearned, ", "))
	}

	doc := &vectorstore.VectorDocument{
		ID:      wonBidDocID(b.ID),
		Content: composeText(parts...),
		Source:  TypeWonBid,
		Metadata: map[string]interface{}{
			"type":           TypeWonBid,
			"won_bid_id":     b.ID,
			"opportunity_id": b.OpportunityID,
			"organization":   b.ClientOrganization,
			"sector":         b.Sector,
			"project_value":  b.ProjectValue,
			"success_score":  b.SuccessScore,
		},
	}
	return s.store.AddDocuments(ctx, []*vectorstore.VectorDocument{doc})
}

// IndexProjectDocument chunks and stores a project document's text.
func (s *Service) IndexProjectDocument(ctx context.Context, d *ProjectDocument) error {
	ctx, span := s.tracer.Start(ctx, "tender.index_project_document",
		trace.WithAttributes(attribute.String("project_document_id", d.ID)))
	defer span.End()

	content := composeText(d.Title, d.Summary, d.Content)
	docs := s.documentChunker.NewDocuments(projectDocumentDocID(d.ID), content, TypeProjectDocument,
		map[string]interface{}{
			"type":                TypeProjectDocument,
			"project_document_id": d.ID,
			"document_type":       d.DocumentType,
			"organization":        d.Organization,
			"region":              d.Region,
			"sector":              d.Sector,
		})
	if len(docs) == 0 {
		s.logger.Warn("project document has no indexable content",
			zap.String("project_document_id", d.ID))
		return nil
	}
	return s.store.AddDocuments(ctx, docs)
}

// composeText joins non-empty parts with blank lines.
func composeText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n\n")
}
