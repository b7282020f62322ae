package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/reside-labs/societygate-api/internal/models"
)

const issueColumns = `id, society_id, unit_id, raised_by, category, status, title, detail,
       assigned_to, resolved_by, resolved_at, created_at, updated_at`

// IssueRepository persists maintenance complaints.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository constructs the repository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts a new issue in OPEN status.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.Status == "" {
		issue.Status = models.IssueStatusOpen
	}
	now := time.Now().UTC()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	const query = `INSERT INTO issues
	(id, society_id, unit_id, raised_by, category, status, title, detail, assigned_to, resolved_by, resolved_at, created_at, updated_at)
	VALUES (:id, :society_id, :unit_id, :raised_by, :category, :status, :title, :detail, :assigned_to, :resolved_by, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

// GetByID fetches an issue by identifier.
func (r *IssueRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	query := fmt.Sprintf("SELECT %s FROM issues WHERE id = $1", issueColumns)
	var issue models.Issue
	if err := r.db.GetContext(ctx, &issue, query, id); err != nil {
		return nil, err
	}
	return &issue, nil
}

// List returns issues matching the filter (newest first).
func (r *IssueRepository) List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM issues", issueColumns))

	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)
	if filter.SocietyID != "" {
		args = append(args, filter.SocietyID)
		conditions = append(conditions, fmt.Sprintf("society_id = $%d", len(args)))
	}
	if filter.UnitID != "" {
		args = append(args, filter.UnitID)
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", len(args)))
	}
	if filter.RaisedBy != "" {
		args = append(args, filter.RaisedBy)
		conditions = append(conditions, fmt.Sprintf("raised_by = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var issues []models.Issue
	if err := r.db.SelectContext(ctx, &issues, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// UpdateIssueParams groups the columns written by one status move.
type UpdateIssueParams struct {
	ID         string
	From       models.IssueStatus
	To         models.IssueStatus
	AssignedTo *string
	ResolvedBy *string
	ResolvedAt *time.Time
}

// UpdateStatus moves an issue along its workflow with the same guarded
// conditional write used for visitor transitions.
func (r *IssueRepository) UpdateStatus(ctx context.Context, params UpdateIssueParams) error {
	setParts := []string{"status = :to", "updated_at = NOW()"}
	args := map[string]interface{}{
		"id":   params.ID,
		"from": params.From,
		"to":   params.To,
	}
	if params.AssignedTo != nil {
		setParts = append(setParts, "assigned_to = :assigned_to")
		args["assigned_to"] = params.AssignedTo
	}
	if params.To == models.IssueStatusResolved {
		setParts = append(setParts, "resolved_by = :resolved_by", "resolved_at = :resolved_at")
		args["resolved_by"] = params.ResolvedBy
		args["resolved_at"] = params.ResolvedAt
	}

	query := fmt.Sprintf("UPDATE issues SET %s WHERE id = :id AND status = :from",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("update issue status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check issue update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountOpen returns how many unresolved issues a society has.
func (r *IssueRepository) CountOpen(ctx context.Context, societyID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM issues WHERE society_id = $1 AND status <> $2`
	if err := r.db.GetContext(ctx, &count, query, societyID, models.IssueStatusResolved); err != nil {
		return 0, fmt.Errorf("count open issues: %w", err)
	}
	return count, nil
}
