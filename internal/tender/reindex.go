package tender

import (
	"context"

	"go.uber.org/zap"
)

// ReindexReport summarizes a bulk reindex pass.
type ReindexReport struct {
	Indexed int            `json:"indexed"`
	Failed  int            `json:"failed"`
	ByType  map[string]int `json:"by_type"`
}

// BulkReindex walks every entity type in fixed order and indexes each
// record, paginating by the service batch size. A record failure is logged
// and skipped; only repository listing errors abort the pass.
func (s *Service) BulkReindex(ctx context.Context) (*ReindexReport, error) {
	ctx, span := s.tracer.Start(ctx, "tender.bulk_reindex")
	defer span.End()

	report := &ReindexReport{ByType: make(map[string]int)}

	passes := []struct {
		entityType string
		page       func(ctx context.Context, limit, offset int) (int, error)
	}{
		{TypeOpportunity, func(ctx context.Context, limit, offset int) (int, error) {
			records, err := s.repo.ListOpportunities(ctx, limit, offset)
			if err != nil {
				return 0, err
			}
			for _, r := range records {
				s.recordOutcome(report, TypeOpportunity, r.ID, s.IndexOpportunity(ctx, r))
			}
			return len(records), nil
		}},
		{TypeProposal, func(ctx context.Context, limit, offset int) (int, error) {
			records, err := s.repo.ListProposals(ctx, limit, offset)
			if err != nil {
				return 0, err
			}
			for _, r := range records {
				s.recordOutcome(report, TypeProposal, r.ID, s.IndexProposal(ctx, r))
			}
			return len(records), nil
		}},
		{TypeWonBid, func(ctx context.Context, limit, offset int) (int, error) {
			records, err := s.repo.ListWonBids(ctx, limit, offset)
			if err != nil {
				return 0, err
			}
			for _, r := range records {
				s.recordOutcome(report, TypeWonBid, r.ID, s.IndexWonBid(ctx, r))
			}
			return len(records), nil
		}},
		{TypeProjectDocument, func(ctx context.Context, limit, offset int) (int, error) {
			records, err := s.repo.ListProjectDocuments(ctx, limit, offset)
			if err != nil {
				return 0, err
			}
			for _, r := range records {
				s.recordOutcome(report, TypeProjectDocument, r.ID, s.IndexProjectDocument(ctx, r))
			}
			return len(records), nil
		}},
	}

	for _, pass := range passes {
		offset := 0
		for {
			n, err := pass.page(ctx, s.batchSize, offset)
			if err != nil {
				return report, err
			}
			s.logger.Info("reindex batch complete",
				zap.String("entity_type", pass.entityType),
				zap.Int("offset", offset),
				zap.Int("batch", n),
				zap.Int("indexed", report.Indexed),
				zap.Int("failed", report.Failed))
			if n < s.batchSize {
				break
			}
			offset += n
		}
	}
	return report, nil
}

func (s *Service) recordOutcome(report *ReindexReport, entityType, id string, err error) {
	if err != nil {
		report.Failed++
		s.logger.Warn("skipping record during reindex",
			zap.String("entity_type", entityType),
			zap.String("entity_id", id),
			zap.Error(err))
		return
	}
	report.Indexed++
	report.ByType[entityType]++
}
