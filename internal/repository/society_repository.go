package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/reside-labs/societygate-api/internal/models"
)

// SocietyRepository persists societies and their blocks.
type SocietyRepository struct {
	db *sqlx.DB
}

// NewSocietyRepository constructs the repository.
func NewSocietyRepository(db *sqlx.DB) *SocietyRepository {
	return &SocietyRepository{db: db}
}

// GetByID fetches a society by identifier.
func (r *SocietyRepository) GetByID(ctx context.Context, id string) (*models.Society, error) {
	const query = `SELECT id, name, address, city, pincode, created_at, updated_at
	FROM societies WHERE id = $1`
	var society models.Society
	if err := r.db.GetContext(ctx, &society, query, id); err != nil {
		return nil, err
	}
	return &society, nil
}

// Create inserts a new society.
func (r *SocietyRepository) Create(ctx context.Context, society *models.Society) error {
	if society.ID == "" {
		society.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if society.CreatedAt.IsZero() {
		society.CreatedAt = now
	}
	society.UpdatedAt = now
	const query = `INSERT INTO societies (id, name, address, city, pincode, created_at, updated_at)
	VALUES (:id, :name, :address, :city, :pincode, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, society); err != nil {
		return fmt.Errorf("create society: %w", err)
	}
	return nil
}

// ListBlocks returns the blocks of one society ordered by name.
func (r *SocietyRepository) ListBlocks(ctx context.Context, societyID string) ([]models.Block, error) {
	const query = `SELECT id, society_id, name, created_at FROM blocks
	WHERE society_id = $1 ORDER BY name`
	var blocks []models.Block
	if err := r.db.SelectContext(ctx, &blocks, query, societyID); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

// CreateBlock inserts a block row.
func (r *SocietyRepository) CreateBlock(ctx context.Context, block *models.Block) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO blocks (id, society_id, name, created_at)
	VALUES (:id, :society_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}
