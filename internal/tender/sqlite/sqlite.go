// Package sqlite is the SQLite-backed implementation of the tender
// repository. The integration layer reads through it; the write helpers
// exist for seeding and the management CLI.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/bidwerx/tendervec/internal/tender"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT '',
	deadline     TEXT NOT NULL DEFAULT '',
	budget_min   REAL NOT NULL DEFAULT 0,
	budget_max   REAL NOT NULL DEFAULT 0,
	country      TEXT NOT NULL DEFAULT '',
	region       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS requirements (
	id             TEXT PRIMARY KEY,
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
	text           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	priority       TEXT NOT NULL DEFAULT '',
	mandatory      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_requirements_opportunity ON requirements(opportunity_id);

CREATE TABLE IF NOT EXISTS proposals (
	id                TEXT PRIMARY KEY,
	opportunity_id    TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL,
	executive_summary TEXT NOT NULL DEFAULT '',
	content           TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT '',
	submitted_at      TEXT NOT NULL DEFAULT '',
	score             REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS won_bids (
	id                  TEXT PRIMARY KEY,
	opportunity_id      TEXT NOT NULL DEFAULT '',
	project_title       TEXT NOT NULL,
	project_description TEXT NOT NULL DEFAULT '',
	client_organization TEXT NOT NULL DEFAULT '',
	sector              TEXT NOT NULL DEFAULT '',
	project_value       REAL NOT NULL DEFAULT 0,
	contract_duration   TEXT NOT NULL DEFAULT '',
	success_score       REAL NOT NULL DEFAULT 0,
	award_date          TEXT NOT NULL DEFAULT '',
	winning_factors     TEXT NOT NULL DEFAULT '[]',
	lessons_learned     TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS project_documents (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	summary         TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL DEFAULT '',
	document_type   TEXT NOT NULL DEFAULT '',
	organization    TEXT NOT NULL DEFAULT '',
	region          TEXT NOT NULL DEFAULT '',
	sector          TEXT NOT NULL DEFAULT '',
	tags            TEXT NOT NULL DEFAULT '[]',
	relevance_score REAL NOT NULL DEFAULT 0,
	document_date   TEXT NOT NULL DEFAULT ''
);
`

// Repository is a SQLite-backed tender.Repository.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database and applies the schema.
func Open(path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Debug("tender database opened", zap.String("path", path))
	return &Repository{db: db, logger: logger}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetOpportunity(ctx context.Context, id string) (*tender.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, organization, category, status,
		       deadline, budget_min, budget_max, country, region
		FROM opportunities WHERE id = ?`, id)

	var o tender.Opportunity
	var deadline string
	err := row.Scan(&o.ID, &o.Title, &o.Description, &o.Organization, &o.Category,
		&o.Status, &deadline, &o.BudgetMin, &o.BudgetMax, &o.Country, &o.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opportunity %q: %w", id, tender.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading opportunity %q: %w", id, err)
	}
	o.Deadline = parseTime(deadline)

	reqs, err := r.requirementsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Requirements = reqs
	return &o, nil
}

func (r *Repository) ListOpportunities(ctx context.Context, limit, offset int) ([]*tender.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM opportunities ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*tender.Opportunity, 0, len(ids))
	for _, id := range ids {
		o, err := r.GetOpportunity(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *Repository) requirementsFor(ctx context.Context, opportunityID string) ([]tender.Requirement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, opportunity_id, text, description, category, priority, mandatory
		FROM requirements WHERE opportunity_id = ? ORDER BY id`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("reading requirements for %q: %w", opportunityID, err)
	}
	defer rows.Close()

	var out []tender.Requirement
	for rows.Next() {
		var req tender.Requirement
		var mandatory int
		if err := rows.Scan(&req.ID, &req.OpportunityID, &req.Text, &req.Description,
			&req.Category, &req.Priority, &mandatory); err != nil {
			return nil, err
		}
		req.Mandatory = mandatory != 0
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *Repository) GetProposal(ctx context.Context, id string) (*tender.Proposal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, opportunity_id, title, executive_summary, content, status, submitted_at, score
		FROM proposals WHERE id = ?`, id)

	var p tender.Proposal
	var submittedAt string
	err := row.Scan(&p.ID, &p.OpportunityID, &p.Title, &p.ExecutiveSummary,
		&p.Content, &p.Status, &submittedAt, &p.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %q: %w", id, tender.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading proposal %q: %w", id, err)
	}
	p.SubmittedAt = parseTime(submittedAt)
	return &p, nil
}

func (r *Repository) ListProposals(ctx context.Context, limit, offset int) ([]*tender.Proposal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, opportunity_id, title, executive_summary, content, status, submitted_at, score
		FROM proposals ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	defer rows.Close()

	var out []*tender.Proposal
	for rows.Next() {
		var p tender.Proposal
		var submittedAt string
		if err := rows.Scan(&p.ID, &p.OpportunityID, &p.Title, &p.ExecutiveSummary,
			&p.Content, &p.Status, &submittedAt, &p.Score); err != nil {
			return nil, err
		}
		p.SubmittedAt = parseTime(submittedAt)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *Repository) GetWonBid(ctx context.Context, id string) (*tender.WonBid, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, opportunity_id, project_title, project_description, client_organization,
		       sector, project_value, contract_duration, success_score, award_date,
		       winning_factors, lessons_learned
		FROM won_bids WHERE id = ?`, id)

	bid, err := scanWonBid(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("won bid %q: %w", id, tender.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading won bid %q: %w", id, err)
	}
	return bid, nil
}

func (r *Repository) ListWonBids(ctx context.Context, limit, offset int) ([]*tender.WonBid, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, opportunity_id, project_title, project_description, client_organization,
		       sector, project_value, contract_duration, success_score, award_date,
		       winning_factors, lessons_learned
		FROM won_bids ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing won bids: %w", err)
	}
	defer rows.Close()

	var out []*tender.WonBid
	for rows.Next() {
		bid, err := scanWonBid(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, bid)
	}
	return out, rows.Err()
}

func scanWonBid(scan func(...any) error) (*tender.WonBid, error) {
	var b tender.WonBid
	var awardDate, factors, lessons string
	err := scan(&b.ID, &b.OpportunityID, &b.ProjectTitle, &b.ProjectDescription,
		&b.ClientOrganization, &b.Sector, &b.ProjectValue, &b.ContractDuration,
		&b.SuccessScore, &awardDate, &factors, &lessons)
	if err != nil {
		return nil, err
	}
	b.AwardDate = parseTime(awardDate)
	b.WinningFactors = parseStringList(factors)
	b.LessonsLearned = parseStringList(lessons)
	return &b, nil
}

func (r *Repository) GetProjectDocument(ctx context.Context, id string) (*tender.ProjectDocument, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, summary, content, document_type, organization, region,
		       sector, tags, relevance_score, document_date
		FROM project_documents WHERE id = ?`, id)

	doc, err := scanProjectDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project document %q: %w", id, tender.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading project document %q: %w", id, err)
	}
	return doc, nil
}

func (r *Repository) ListProjectDocuments(ctx context.Context, limit, offset int) ([]*tender.ProjectDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, summary, content, document_type, organization, region,
		       sector, tags, relevance_score, document_date
		FROM project_documents ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing project documents: %w", err)
	}
	defer rows.Close()

	var out []*tender.ProjectDocument
	for rows.Next() {
		doc, err := scanProjectDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanProjectDocument(scan func(...any) error) (*tender.ProjectDocument, error) {
	var d tender.ProjectDocument
	var documentDate, tags string
	err := scan(&d.ID, &d.Title, &d.Summary, &d.Content, &d.DocumentType,
		&d.Organization, &d.Region, &d.Sector, &tags, &d.RelevanceScore, &documentDate)
	if err != nil {
		return nil, err
	}
	d.DocumentDate = parseTime(documentDate)
	d.Tags = parseStringList(tags)
	return &d, nil
}

// Write helpers.

// SaveOpportunity upserts an opportunity and replaces its requirements.
func (r *Repository) SaveOpportunity(ctx context.Context, o *tender.Opportunity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO opportunities (id, title, description, organization, category, status,
		                           deadline, budget_min, budget_max, country, region)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			organization = excluded.organization, category = excluded.category,
			status = excluded.status, deadline = excluded.deadline,
			budget_min = excluded.budget_min, budget_max = excluded.budget_max,
			country = excluded.country, region = excluded.region`,
		o.ID, o.Title, o.Description, o.Organization, o.Category, o.Status,
		formatTime(o.Deadline), o.BudgetMin, o.BudgetMax, o.Country, o.Region)
	if err != nil {
		return fmt.Errorf("saving opportunity %q: %w", o.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM requirements WHERE opportunity_id = ?`, o.ID); err != nil {
		return err
	}
	for _, req := range o.Requirements {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO requirements (id, opportunity_id, text, description, category, priority, mandatory)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			req.ID, o.ID, req.Text, req.Description, req.Category, req.Priority, boolToInt(req.Mandatory))
		if err != nil {
			return fmt.Errorf("saving requirement %q: %w", req.ID, err)
		}
	}
	return tx.Commit()
}

// SaveProposal upserts a proposal.
func (r *Repository) SaveProposal(ctx context.Context, p *tender.Proposal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO proposals (id, opportunity_id, title, executive_summary, content, status, submitted_at, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			opportunity_id = excluded.opportunity_id, title = excluded.title,
			executive_summary = excluded.executive_summary, content = excluded.content,
			status = excluded.status, submitted_at = excluded.submitted_at,
			score = excluded.score`,
		p.ID, p.OpportunityID, p.Title, p.ExecutiveSummary, p.Content, p.Status,
		formatTime(p.SubmittedAt), p.Score)
	if err != nil {
		return fmt.Errorf("saving proposal %q: %w", p.ID, err)
	}
	return nil
}

// SaveWonBid upserts a winning bid.
func (r *Repository) SaveWonBid(ctx context.Context, b *tender.WonBid) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO won_bids (id, opportunity_id, project_title, project_description,
		                      client_organization, sector, project_value, contract_duration,
		                      success_score, award_date, winning_factors, lessons_learned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			opportunity_id = excluded.opportunity_id, project_title = excluded.project_title,
			project_description = excluded.project_description,
			client_organization = excluded.client_organization, sector = excluded.sector,
			project_value = excluded.project_value, contract_duration = excluded.contract_duration,
			success_score = excluded.success_score, award_date = excluded.award_date,
			winning_factors = excluded.winning_factors, lessons_learned = excluded.lessons_learned`,
		b.ID, b.OpportunityID, b.ProjectTitle, b.ProjectDescription, b.ClientOrganization,
		b.Sector, b.ProjectValue, b.ContractDuration, b.SuccessScore, formatTime(b.AwardDate),
		encodeStringList(b.WinningFactors), encodeStringList(b.LessonsLearned))
	if err != nil {
		return fmt.Errorf("saving won bid %q: %w", b.ID, err)
	}
	return nil
}

// SaveProjectDocument upserts a project document.
func (r *Repository) SaveProjectDocument(ctx context.Context, d *tender.ProjectDocument) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_documents (id, title, summary, content, document_type,
		                               organization, region, sector, tags, relevance_score, document_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, summary = excluded.summary, content = excluded.content,
			document_type = excluded.document_type, organization = excluded.organization,
			region = excluded.region, sector = excluded.sector, tags = excluded.tags,
			relevance_score = excluded.relevance_score, document_date = excluded.document_date`,
		d.ID, d.Title, d.Summary, d.Content, d.DocumentType, d.Organization, d.Region,
		d.Sector, encodeStringList(d.Tags), d.RelevanceScore, formatTime(d.DocumentDate))
	if err != nil {
		return fmt.Errorf("saving project document %q: %w", d.ID, err)
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseStringList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
