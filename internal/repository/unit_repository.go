package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/reside-labs/societygate-api/internal/models"
)

// UnitRepository persists units and supports the walk-in destination lookup.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository constructs the repository.
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// Create inserts a unit row.
func (r *UnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO units (id, society_id, block_id, number, floor, occupied, created_at)
	VALUES (:id, :society_id, :block_id, :number, :floor, :occupied, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, unit); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

// GetByID fetches a unit by identifier.
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*models.Unit, error) {
	const query = `SELECT id, society_id, block_id, number, floor, occupied, created_at
	FROM units WHERE id = $1`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindByNumber resolves a unit by its exact, case-sensitive display number
// within a society. sql.ErrNoRows signals "unit not found".
func (r *UnitRepository) FindByNumber(ctx context.Context, societyID, number string) (*models.Unit, error) {
	const query = `SELECT id, society_id, block_id, number, floor, occupied, created_at
	FROM units WHERE society_id = $1 AND number = $2`
	var unit models.Unit
	if err := r.db.GetContext(ctx, &unit, query, societyID, number); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListByBlock returns the units of one block ordered by number.
func (r *UnitRepository) ListByBlock(ctx context.Context, blockID string) ([]models.Unit, error) {
	const query = `SELECT id, society_id, block_id, number, floor, occupied, created_at
	FROM units WHERE block_id = $1 ORDER BY number`
	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, query, blockID); err != nil {
		return nil, fmt.Errorf("list units by block: %w", err)
	}
	return units, nil
}

// CountByBlock returns how many units a block holds.
func (r *UnitRepository) CountByBlock(ctx context.Context, blockID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM units WHERE block_id = $1", blockID); err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return count, nil
}

// CountBySociety returns total and occupied unit counts for a society.
func (r *UnitRepository) CountBySociety(ctx context.Context, societyID string) (total int, occupied int, err error) {
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE occupied) FROM units WHERE society_id = $1`
	row := r.db.QueryRowxContext(ctx, query, societyID)
	if err := row.Scan(&total, &occupied); err != nil {
		return 0, 0, fmt.Errorf("count society units: %w", err)
	}
	return total, occupied, nil
}
