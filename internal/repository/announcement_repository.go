package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/reside-labs/societygate-api/internal/models"
)

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns announcements visible to the provided audiences.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	base := "FROM announcements"
	where := []string{"society_id = $1", "published_at <= NOW()", "(expires_at IS NULL OR expires_at > NOW())"}
	args := []interface{}{filter.SocietyID}

	audiences := map[string]struct{}{string(models.AnnouncementAudienceAll): {}}
	for _, role := range filter.AudienceRoles {
		switch role {
		case models.RoleResident:
			audiences[string(models.AnnouncementAudienceResidents)] = struct{}{}
		case models.RoleGuard:
			audiences[string(models.AnnouncementAudienceGuards)] = struct{}{}
		case models.RoleManager, models.RoleAdmin:
			audiences[string(models.AnnouncementAudienceResidents)] = struct{}{}
			audiences[string(models.AnnouncementAudienceGuards)] = struct{}{}
			audiences[string(models.AnnouncementAudienceBlock)] = struct{}{}
		}
	}
	if len(filter.BlockIDs) > 0 {
		where = append(where, fmt.Sprintf("(audience <> 'BLOCK' OR target_block_id = ANY($%d))", len(args)+1))
		args = append(args, pq.Array(filter.BlockIDs))
		audiences[string(models.AnnouncementAudienceBlock)] = struct{}{}
	}
	values := make([]string, 0, len(audiences))
	for v := range audiences {
		values = append(values, v)
	}
	where = append(where, fmt.Sprintf("audience = ANY($%d)", len(args)+1))
	args = append(args, pq.Array(values))
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, society_id, title, content, audience, target_block_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at
%s WHERE %s
ORDER BY is_pinned DESC, priority DESC, published_at DESC
LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	const query = `SELECT id, society_id, title, content, audience, target_block_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at
FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	if announcement.PublishedAt.IsZero() {
		announcement.PublishedAt = now
	}
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, society_id, title, content, audience, target_block_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at)
VALUES (:id, :society_id, :title, :content, :audience, :target_block_id, :priority, :is_pinned, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
