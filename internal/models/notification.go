package models

import "time"

// NotificationKind tags what produced a notification.
type NotificationKind string

const (
	NotificationKindVisitor      NotificationKind = "VISITOR"
	NotificationKindAnnouncement NotificationKind = "ANNOUNCEMENT"
	NotificationKindIssue        NotificationKind = "ISSUE"
)

// Notification is one per-user inbox entry. Delivery to a push channel is
// best-effort; the row is the source of truth.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	RefID     *string          `db:"ref_id" json:"ref_id,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
