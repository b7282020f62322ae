package dto

import (
	"time"

	"github.com/reside-labs/societygate-api/internal/models"
)

// PreApproveVisitorRequest creates an expected visitor already approved by
// the host resident. The generated gate code is returned exactly once.
type PreApproveVisitorRequest struct {
	Name         string             `json:"name" validate:"required"`
	Phone        string             `json:"phone" validate:"omitempty,len=10,numeric"`
	Purpose      string             `json:"purpose"`
	Type         models.VisitorType `json:"type" validate:"omitempty"`
	ExpectedDate string             `json:"expected_date" validate:"required,datetime=2006-01-02"`
	ExpectedTime string             `json:"expected_time" validate:"omitempty,datetime=15:04"`
}

// RequestVisitRequest creates a visitor in PENDING awaiting host approval.
type RequestVisitRequest struct {
	Name         string             `json:"name" validate:"required"`
	Phone        string             `json:"phone" validate:"omitempty,len=10,numeric"`
	Purpose      string             `json:"purpose"`
	Type         models.VisitorType `json:"type" validate:"omitempty"`
	UnitID       string             `json:"unit_id" validate:"required"`
	ExpectedDate string             `json:"expected_date" validate:"omitempty,datetime=2006-01-02"`
	ExpectedTime string             `json:"expected_time" validate:"omitempty,datetime=15:04"`
}

// WalkInRequest registers an unannounced visitor directly at the gate. The
// destination unit is resolved by exact unit-number match in the society.
type WalkInRequest struct {
	Name       string             `json:"name" validate:"required"`
	Phone      string             `json:"phone" validate:"omitempty,len=10,numeric"`
	Purpose    string             `json:"purpose"`
	Type       models.VisitorType `json:"type" validate:"omitempty"`
	UnitNumber string             `json:"unit_number" validate:"required"`
}

// DenyVisitorRequest carries the optional denial reason.
type DenyVisitorRequest struct {
	Reason string `json:"reason"`
}

// CheckInByOTPRequest authenticates a visitor by gate code instead of QR.
type CheckInByOTPRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// PreApprovedVisitor pairs the created record with its one-time gate code.
type PreApprovedVisitor struct {
	Visitor *VisitorView `json:"visitor"`
	OTP     string       `json:"otp"`
	Expires time.Time    `json:"otp_expires_at"`
}

// VisitorView is the externally visible projection of a visitor record.
// Phone is masked unless the viewer is the host resident.
type VisitorView struct {
	ID           string               `json:"id"`
	SocietyID    string               `json:"society_id"`
	UnitID       string               `json:"unit_id"`
	HostID       string               `json:"host_id"`
	Type         models.VisitorType   `json:"type"`
	Status       models.VisitorStatus `json:"status"`
	Name         string               `json:"name"`
	Phone        string               `json:"phone,omitempty"`
	Purpose      string               `json:"purpose,omitempty"`
	ExpectedDate *time.Time           `json:"expected_date,omitempty"`
	ExpectedTime string               `json:"expected_time,omitempty"`
	DenyReason   string               `json:"deny_reason,omitempty"`
	CheckedInAt  *time.Time           `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time           `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// VisitorQuery captures list filters from query params.
type VisitorQuery struct {
	Status []models.VisitorStatus
	UnitID string
	Date   *time.Time
	Limit  int
	Offset int
}
