package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/tender"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "tender.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestOpportunityRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	deadline := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	opp := &tender.Opportunity{
		ID:           "opp-1",
		Title:        "Depot refurbishment",
		Description:  "Full refurbishment of the bus depot",
		Organization: "City Transit",
		Category:     "construction",
		Status:       "open",
		Deadline:     deadline,
		BudgetMin:    100000,
		BudgetMax:    250000,
		Country:      "NL",
		Region:       "Utrecht",
		Requirements: []tender.Requirement{
			{ID: "req-1", OpportunityID: "opp-1", Text: "ISO 9001 certification", Mandatory: true},
			{ID: "req-2", OpportunityID: "opp-1", Text: "Local subcontractor plan", Priority: "high"},
		},
	}
	require.NoError(t, repo.SaveOpportunity(ctx, opp))

	got, err := repo.GetOpportunity(ctx, "opp-1")
	require.NoError(t, err)
	assert.Equal(t, opp.Title, got.Title)
	assert.Equal(t, deadline, got.Deadline)
	require.Len(t, got.Requirements, 2)
	assert.True(t, got.Requirements[0].Mandatory)
	assert.Equal(t, "high", got.Requirements[1].Priority)
}

func TestGetOpportunityNotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetOpportunity(context.Background(), "missing")
	assert.ErrorIs(t, err, tender.ErrNotFound)
}

func TestSaveOpportunityReplacesRequirements(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	opp := &tender.Opportunity{
		ID:    "opp-1",
		Title: "Initial title",
		Requirements: []tender.Requirement{
			{ID: "req-1", Text: "Old requirement"},
		},
	}
	require.NoError(t, repo.SaveOpportunity(ctx, opp))

	opp.Title = "Updated title"
	opp.Requirements = []tender.Requirement{
		{ID: "req-2", Text: "New requirement"},
	}
	require.NoError(t, repo.SaveOpportunity(ctx, opp))

	got, err := repo.GetOpportunity(ctx, "opp-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated title", got.Title)
	require.Len(t, got.Requirements, 1)
	assert.Equal(t, "req-2", got.Requirements[0].ID)
}

func TestWonBidStringLists(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	bid := &tender.WonBid{
		ID:                 "bid-1",
		ProjectTitle:       "Tram line extension",
		ClientOrganization: "Metro Authority",
		WinningFactors:     []string{"competitive pricing", "local presence"},
		LessonsLearned:     []string{"start permits early"},
		AwardDate:          time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SaveWonBid(ctx, bid))

	got, err := repo.GetWonBid(ctx, "bid-1")
	require.NoError(t, err)
	assert.Equal(t, bid.WinningFactors, got.WinningFactors)
	assert.Equal(t, bid.LessonsLearned, got.LessonsLearned)
	assert.Equal(t, bid.AwardDate, got.AwardDate)

	_, err = repo.GetWonBid(ctx, "missing")
	assert.ErrorIs(t, err, tender.ErrNotFound)
}

func TestListPagination(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"prop-1", "prop-2", "prop-3", "prop-4", "prop-5"} {
		require.NoError(t, repo.SaveProposal(ctx, &tender.Proposal{ID: id, Title: "Proposal " + id}))
	}

	first, err := repo.ListProposals(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "prop-1", first[0].ID)
	assert.Equal(t, "prop-2", first[1].ID)

	last, err := repo.ListProposals(ctx, 10, 4)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "prop-5", last[0].ID)

	none, err := repo.ListProposals(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProjectDocumentRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	doc := &tender.ProjectDocument{
		ID:             "doc-1",
		Title:          "Resurfacing case study",
		Summary:        "Outcomes of the 2024 resurfacing programme",
		Content:        "Long form case study body",
		DocumentType:   "case_study",
		Organization:   "Highways Agency",
		Tags:           []string{"roads", "maintenance"},
		RelevanceScore: 0.8,
	}
	require.NoError(t, repo.SaveProjectDocument(ctx, doc))

	got, err := repo.GetProjectDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Tags, got.Tags)
	assert.True(t, got.DocumentDate.IsZero())
}
