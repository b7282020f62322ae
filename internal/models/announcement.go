package models

import "time"

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll       AnnouncementAudience = "ALL"
	AnnouncementAudienceResidents AnnouncementAudience = "RESIDENTS"
	AnnouncementAudienceGuards    AnnouncementAudience = "GUARDS"
	AnnouncementAudienceBlock     AnnouncementAudience = "BLOCK"
)

// AnnouncementPriority defines ordering for announcements.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow       AnnouncementPriority = "LOW"
	AnnouncementPriorityNormal    AnnouncementPriority = "NORMAL"
	AnnouncementPriorityEmergency AnnouncementPriority = "EMERGENCY"
)

// Announcement represents a persisted announcement row. Emergency alerts
// additionally trigger a best-effort notification fan-out.
type Announcement struct {
	ID            string               `db:"id" json:"id"`
	SocietyID     string               `db:"society_id" json:"society_id"`
	Title         string               `db:"title" json:"title"`
	Content       string               `db:"content" json:"content"`
	Audience      AnnouncementAudience `db:"audience" json:"audience"`
	TargetBlockID *string              `db:"target_block_id" json:"target_block_id,omitempty"`
	Priority      AnnouncementPriority `db:"priority" json:"priority"`
	IsPinned      bool                 `db:"is_pinned" json:"is_pinned"`
	PublishedAt   time.Time            `db:"published_at" json:"published_at"`
	ExpiresAt     *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy     string               `db:"created_by" json:"created_by"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter allows listing announcements scoped by role.
type AnnouncementFilter struct {
	SocietyID     string
	AudienceRoles []UserRole
	BlockIDs      []string
	Page          int
	PageSize      int
}
