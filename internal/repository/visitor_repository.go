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

const visitorColumns = `id, society_id, unit_id, host_id, type, status, name, phone, purpose,
       expected_date, expected_time, otp, otp_expires_at, deny_reason,
       checked_in_by, checked_out_by, checked_in_at, checked_out_at, created_at`

// VisitorRepository persists visitor lifecycle data.
type VisitorRepository struct {
	db *sqlx.DB
}

// NewVisitorRepository constructs the repository.
func NewVisitorRepository(db *sqlx.DB) *VisitorRepository {
	return &VisitorRepository{db: db}
}

// Create inserts a new visitor row in its initial status.
func (r *VisitorRepository) Create(ctx context.Context, visitor *models.Visitor) error {
	if visitor.ID == "" {
		visitor.ID = uuid.NewString()
	}
	if visitor.CreatedAt.IsZero() {
		visitor.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO visitors
	(id, society_id, unit_id, host_id, type, status, name, phone, purpose,
	 expected_date, expected_time, otp, otp_expires_at, deny_reason,
	 checked_in_by, checked_out_by, checked_in_at, checked_out_at, created_at)
	VALUES (:id, :society_id, :unit_id, :host_id, :type, :status, :name, :phone, :purpose,
	 :expected_date, :expected_time, :otp, :otp_expires_at, :deny_reason,
	 :checked_in_by, :checked_out_by, :checked_in_at, :checked_out_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, visitor); err != nil {
		return fmt.Errorf("create visitor: %w", err)
	}
	return nil
}

// GetByID fetches a visitor by identifier.
func (r *VisitorRepository) GetByID(ctx context.Context, id string) (*models.Visitor, error) {
	query := fmt.Sprintf(`SELECT %s FROM visitors WHERE id = $1`, visitorColumns)
	var visitor models.Visitor
	if err := r.db.GetContext(ctx, &visitor, query, id); err != nil {
		return nil, err
	}
	return &visitor, nil
}

// List returns visitors matching the filter (newest first).
func (r *VisitorRepository) List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM visitors", visitorColumns))

	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 5)
	if filter.SocietyID != "" {
		args = append(args, filter.SocietyID)
		conditions = append(conditions, fmt.Sprintf("society_id = $%d", len(args)))
	}
	if filter.UnitID != "" {
		args = append(args, filter.UnitID)
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", len(args)))
	}
	if filter.HostID != "" {
		args = append(args, filter.HostID)
		conditions = append(conditions, fmt.Sprintf("host_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, filter.Date.Format("2006-01-02"))
		conditions = append(conditions, fmt.Sprintf("expected_date = $%d", len(args)))
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

	var visitors []models.Visitor
	if err := r.db.SelectContext(ctx, &visitors, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, nil
}

// FindApprovedByOTP resolves an approved visitor by gate code. The lookup
// is indexed server-side so guards never scan the day's list; expiry is
// checked by the caller so an expired code is reported distinctly from an
// unknown one.
func (r *VisitorRepository) FindApprovedByOTP(ctx context.Context, societyID, code string) (*models.Visitor, error) {
	query := fmt.Sprintf(`SELECT %s FROM visitors
	WHERE society_id = $1 AND otp = $2 AND status = $3
	ORDER BY created_at DESC LIMIT 1`, visitorColumns)
	var visitor models.Visitor
	if err := r.db.GetContext(ctx, &visitor, query, societyID, code, models.VisitorStatusApproved); err != nil {
		return nil, err
	}
	return &visitor, nil
}

// TransitionParams groups the columns written by one guarded status move.
type TransitionParams struct {
	ID         string
	From       models.VisitorStatus
	To         models.VisitorStatus
	GuardID    string
	At         time.Time
	DenyReason *string
}

// Transition performs the compare-and-swap status move: the UPDATE is
// predicated on the persisted status still being From, and zero affected
// rows means another actor won the race. This conditional write is the only
// serialization primitive the lifecycle relies on.
func (r *VisitorRepository) Transition(ctx context.Context, params TransitionParams) error {
	setParts := []string{"status = :to"}
	args := map[string]interface{}{
		"id":   params.ID,
		"from": params.From,
		"to":   params.To,
	}
	switch params.To {
	case models.VisitorStatusCheckedIn:
		// Consuming the OTP here, inside the same guarded write, is what
		// makes a gate code single-use.
		setParts = append(setParts,
			"checked_in_by = :guard_id",
			"checked_in_at = :at",
			"otp = NULL",
			"otp_expires_at = NULL",
		)
		args["guard_id"] = params.GuardID
		args["at"] = params.At
	case models.VisitorStatusCheckedOut:
		setParts = append(setParts,
			"checked_out_by = :guard_id",
			"checked_out_at = :at",
		)
		args["guard_id"] = params.GuardID
		args["at"] = params.At
	case models.VisitorStatusDenied:
		setParts = append(setParts, "deny_reason = :deny_reason")
		args["deny_reason"] = params.DenyReason
	}

	query := fmt.Sprintf("UPDATE visitors SET %s WHERE id = :id AND status = :from",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("transition visitor status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check visitor transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatusOnDate returns today's lifecycle counts for dashboards.
func (r *VisitorRepository) CountByStatusOnDate(ctx context.Context, societyID string, date time.Time) (map[models.VisitorStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM visitors
	WHERE society_id = $1 AND (expected_date = $2 OR created_at::date = $2)
	GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query, societyID, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("count visitors by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.VisitorStatus]int)
	for rows.Next() {
		var status models.VisitorStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan visitor count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitor counts: %w", err)
	}
	return counts, nil
}
