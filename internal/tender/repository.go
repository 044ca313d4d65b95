package tender

import (
	"context"
	"errors"
)

// ErrNotFound indicates an entity id with no backing record. Search paths
// treat it as a stale index entry and drop the hit; direct gets return it.
var ErrNotFound = errors.New("entity not found")

// Repository is the read-side relational collaborator. Each entity type
// exposes read-by-id and paginated listing; the integration layer never
// writes through it.
type Repository interface {
	GetOpportunity(ctx context.Context, id string) (*Opportunity, error)
	ListOpportunities(ctx context.Context, limit, offset int) ([]*Opportunity, error)

	GetProposal(ctx context.Context, id string) (*Proposal, error)
	ListProposals(ctx context.Context, limit, offset int) ([]*Proposal, error)

	GetWonBid(ctx context.Context, id string) (*WonBid, error)
	ListWonBids(ctx context.Context, limit, offset int) ([]*WonBid, error)

	GetProjectDocument(ctx context.Context, id string) (*ProjectDocument, error)
	ListProjectDocuments(ctx context.Context, limit, offset int) ([]*ProjectDocument, error)
}
