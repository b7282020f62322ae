package models

import "time"

// IssueCategory groups maintenance complaints.
type IssueCategory string

const (
	IssueCategoryPlumbing     IssueCategory = "PLUMBING"
	IssueCategoryElectrical   IssueCategory = "ELECTRICAL"
	IssueCategoryHousekeeping IssueCategory = "HOUSEKEEPING"
	IssueCategorySecurity     IssueCategory = "SECURITY"
	IssueCategoryOther        IssueCategory = "OTHER"
)

// IssueStatus captures the complaint workflow states.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusResolved   IssueStatus = "RESOLVED"
)

// Issue is a resident-raised maintenance complaint. Status moves use the
// same guarded-update discipline as visitor transitions.
type Issue struct {
	ID         string        `db:"id" json:"id"`
	SocietyID  string        `db:"society_id" json:"society_id"`
	UnitID     string        `db:"unit_id" json:"unit_id"`
	RaisedBy   string        `db:"raised_by" json:"raised_by"`
	Category   IssueCategory `db:"category" json:"category"`
	Status     IssueStatus   `db:"status" json:"status"`
	Title      string        `db:"title" json:"title"`
	Detail     string        `db:"detail" json:"detail"`
	AssignedTo *string       `db:"assigned_to" json:"assigned_to,omitempty"`
	ResolvedBy *string       `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// IssueFilter constrains issue listing queries.
type IssueFilter struct {
	SocietyID string
	UnitID    string
	RaisedBy  string
	Status    []IssueStatus
	Limit     int
	Offset    int
}
