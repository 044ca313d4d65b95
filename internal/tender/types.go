// Package tender maps relational tender records into searchable vector
// documents and back. Each entity type gets a deterministic set of
// documents carrying a type discriminator and the entity's primary key, so
// search hits can be hydrated through the relational repository.
package tender

import "time"

// Entity type discriminators stored in document metadata.
const (
	TypeOpportunity     = "opportunity"
	TypeRequirement     = "requirement"
	TypeProposal        = "proposal"
	TypeWonBid          = "won_bid"
	TypeProjectDocument = "project_document"
)

// Opportunity is a published tender the business may bid on.
type Opportunity struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Organization string        `json:"organization"`
	Category     string        `json:"category"`
	Status       string        `json:"status"`
	Deadline     time.Time     `json:"deadline"`
	BudgetMin    float64       `json:"budget_min"`
	BudgetMax    float64       `json:"budget_max"`
	Country      string        `json:"country"`
	Region       string        `json:"region"`
	Requirements []Requirement `json:"requirements,omitempty"`
}

// Requirement is a single requirement attached to an opportunity.
type Requirement struct {
	ID            string `json:"id"`
	OpportunityID string `json:"opportunity_id"`
	Text          string `json:"text"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Priority      string `json:"priority"`
	Mandatory     bool   `json:"mandatory"`
}

// Proposal is a bid document written against an opportunity.
type Proposal struct {
	ID               string    `json:"id"`
	OpportunityID    string    `json:"opportunity_id"`
	Title            string    `json:"title"`
	ExecutiveSummary string    `json:"executive_summary"`
	Content          string    `json:"content"`
	Status           string    `json:"status"`
	SubmittedAt      time.Time `json:"submitted_at"`
	Score            float64   `json:"score"`
}

// WonBid is a historical winning bid used for recommendation mining.
type WonBid struct {
	ID                 string    `json:"id"`
	OpportunityID      string    `json:"opportunity_id"`
	ProjectTitle       string    `json:"project_title"`
	ProjectDescription string    `json:"project_description"`
	ClientOrganization string    `json:"client_organization"`
	Sector             string    `json:"sector"`
	ProjectValue       float64   `json:"project_value"`
	ContractDuration   string    `json:"contract_duration"`
	SuccessScore       float64   `json:"success_score"`
	AwardDate          time.Time `json:"award_date"`
	WinningFactors     []string  `json:"winning_factors,omitempty"`
	LessonsLearned     []string  `json:"lessons_learned,omitempty"`
}

// ProjectDocument is reference documentation from past projects.
type ProjectDocument struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Content        string    `json:"content"`
	DocumentType   string    `json:"document_type"`
	Organization   string    `json:"organization"`
	Region         string    `json:"region"`
	Sector         string    `json:"sector"`
	Tags           []string  `json:"tags,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
	DocumentDate   time.Time `json:"document_date"`
}
