package tender

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// topFactorCount caps how many recurring winning factors turn into
// recommendation strings.
const topFactorCount = 3

// WinningPattern is a historical winning bid relevant to a target
// opportunity.
type WinningPattern struct {
	WonBidID           string   `json:"won_bid_id"`
	ProjectTitle       string   `json:"project_title"`
	ClientOrganization string   `json:"client_organization"`
	Sector             string   `json:"sector"`
	ProjectValue       float64  `json:"project_value"`
	SuccessScore       float64  `json:"success_score"`
	Similarity         float32  `json:"similarity"`
	WinningFactors     []string `json:"winning_factors,omitempty"`
}

// RelevantDocument is a project document relevant to a target opportunity.
type RelevantDocument struct {
	ProjectDocumentID string  `json:"project_document_id"`
	Title             string  `json:"title"`
	DocumentType      string  `json:"document_type"`
	Organization      string  `json:"organization"`
	Similarity        float32 `json:"similarity"`
}

// Recommendations aggregates historical evidence for one opportunity.
type Recommendations struct {
	OpportunityID string             `json:"opportunity_id"`
	Patterns      []WinningPattern   `json:"patterns"`
	Documents     []RelevantDocument `json:"documents"`
	Suggestions   []string           `json:"suggestions"`
	Organizations []string           `json:"organizations"`
}

// RecommendationsForOpportunity searches winning bids and project
// documentation with a query built from the opportunity's title and
// description, then mines the results: recurring winning factors become
// ranked suggestions and the distinct organizations involved are surfaced
// for reference checking.
func (s *Service) RecommendationsForOpportunity(ctx context.Context, opportunityID string) (*Recommendations, error) {
	ctx, span := s.tracer.Start(ctx, "tender.recommendations",
		trace.WithAttributes(attribute.String("opportunity_id", opportunityID)))
	defer span.End()

	opp, err := s.repo.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("loading opportunity %q: %w", opportunityID, err)
	}
	query := composeText(opp.Title, opp.Description)

	bids, err := s.FindSimilarWonBids(ctx, query, recommendationResults)
	if err != nil {
		return nil, err
	}
	docs, err := s.SearchProjectDocuments(ctx, query, recommendationResults)
	if err != nil {
		return nil, err
	}

	rec := &Recommendations{OpportunityID: opportunityID}

	factorCounts := make(map[string]int)
	for _, hit := range bids {
		rec.Patterns = append(rec.Patterns, WinningPattern{
			WonBidID:           hit.WonBid.ID,
			ProjectTitle:       hit.WonBid.ProjectTitle,
			ClientOrganization: hit.WonBid.ClientOrganization,
			Sector:             hit.WonBid.Sector,
			ProjectValue:       hit.WonBid.ProjectValue,
			SuccessScore:       hit.WonBid.SuccessScore,
			Similarity:         hit.Score,
			WinningFactors:     hit.WonBid.WinningFactors,
		})
		for _, f := range hit.WonBid.WinningFactors {
			if f = strings.TrimSpace(f); f != "" {
				factorCounts[strings.ToLower(f)]++
			}
		}
	}
	for _, hit := range docs {
		rec.Documents = append(rec.Documents, RelevantDocument{
			ProjectDocumentID: hit.Document.ID,
			Title:             hit.Document.Title,
			DocumentType:      hit.Document.DocumentType,
			Organization:      hit.Document.Organization,
			Similarity:        hit.Score,
		})
	}

	rec.Organizations = distinctOrganizations(bids, docs)
	rec.Suggestions = buildSuggestions(factorCounts, rec.Organizations)
	return rec, nil
}

// buildSuggestions turns factor frequencies into human-readable strings,
// most frequent first. Ties break alphabetically so output is stable.
func buildSuggestions(factorCounts map[string]int, organizations []string) []string {
	factors := make([]string, 0, len(factorCounts))
	for f := range factorCounts {
		factors = append(factors, f)
	}
	sort.Slice(factors, func(a, b int) bool {
		if factorCounts[factors[a]] != factorCounts[factors[b]] {
			return factorCounts[factors[a]] > factorCounts[factors[b]]
		}
		return factors[a] < factors[b]
	})
	if len(factors) > topFactorCount {
		factors = factors[:topFactorCount]
	}

	suggestions := make([]string, 0, len(factors)+1)
	for _, f := range factors {
		suggestions = append(suggestions, fmt.Sprintf(
			"Emphasize %q in the proposal; it appears in %d similar winning bids.",
			f, factorCounts[f]))
	}
	if len(organizations) > 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Review past work involving: %s.", strings.Join(organizations, ", ")))
	}
	return suggestions
}

// distinctOrganizations collects organizations from both result sets in
// encounter order.
func distinctOrganizations(bids []WonBidHit, docs []ProjectDocumentHit) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(org string) {
		org = strings.TrimSpace(org)
		if org == "" || seen[org] {
			return
		}
		seen[org] = true
		out = append(out, org)
	}
	for _, b := range bids {
		add(b.WonBid.ClientOrganization)
	}
	for _, d := range docs {
		add(d.Document.Organization)
	}
	return out
}
