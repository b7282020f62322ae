package dto

import "github.com/reside-labs/societygate-api/internal/models"

// CreateAnnouncementRequest publishes a notice to the society. EMERGENCY
// priority triggers a best-effort notification fan-out to every member.
type CreateAnnouncementRequest struct {
	Title         string                      `json:"title" validate:"required"`
	Content       string                      `json:"content" validate:"required"`
	Audience      models.AnnouncementAudience `json:"audience" validate:"required"`
	TargetBlockID string                      `json:"target_block_id"`
	Priority      models.AnnouncementPriority `json:"priority"`
	IsPinned      bool                        `json:"is_pinned"`
	ExpiresAt     string                      `json:"expires_at" validate:"omitempty,datetime=2006-01-02"`
}
