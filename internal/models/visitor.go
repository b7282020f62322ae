package models

import "time"

// VisitorType classifies the kind of visit.
type VisitorType string

const (
	VisitorTypeExpected VisitorType = "EXPECTED"
	VisitorTypeWalkIn   VisitorType = "WALK_IN"
	VisitorTypeDelivery VisitorType = "DELIVERY"
	VisitorTypeService  VisitorType = "SERVICE"
	VisitorTypeGuest    VisitorType = "GUEST"
)

// VisitorStatus is the lifecycle state of a visit. PENDING and the walk-in
// created CHECKED_IN are the only initial states; DENIED and CHECKED_OUT
// are terminal.
type VisitorStatus string

const (
	VisitorStatusPending    VisitorStatus = "PENDING"
	VisitorStatusApproved   VisitorStatus = "APPROVED"
	VisitorStatusDenied     VisitorStatus = "DENIED"
	VisitorStatusCheckedIn  VisitorStatus = "CHECKED_IN"
	VisitorStatusCheckedOut VisitorStatus = "CHECKED_OUT"
)

// visitorTransitions holds the directed edges of the status graph. Every
// lifecycle write is guarded on its source status at the database, so this
// table is the single definition of what a legal move is.
var visitorTransitions = map[VisitorStatus][]VisitorStatus{
	VisitorStatusPending:   {VisitorStatusApproved, VisitorStatusDenied},
	VisitorStatusApproved:  {VisitorStatusCheckedIn, VisitorStatusDenied},
	VisitorStatusCheckedIn: {VisitorStatusCheckedOut},
}

// CanTransitionTo reports whether the status graph contains the edge s -> target.
func (s VisitorStatus) CanTransitionTo(target VisitorStatus) bool {
	for _, next := range visitorTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave this status.
func (s VisitorStatus) Terminal() bool {
	return len(visitorTransitions[s]) == 0
}

// Valid reports whether s is one of the known statuses.
func (s VisitorStatus) Valid() bool {
	switch s {
	case VisitorStatusPending, VisitorStatusApproved, VisitorStatusDenied,
		VisitorStatusCheckedIn, VisitorStatusCheckedOut:
		return true
	}
	return false
}

// Valid reports whether t is one of the known visitor types.
func (t VisitorType) Valid() bool {
	switch t {
	case VisitorTypeExpected, VisitorTypeWalkIn, VisitorTypeDelivery,
		VisitorTypeService, VisitorTypeGuest:
		return true
	}
	return false
}

// Visitor represents one visit instance. OTP and OTPExpiresAt are set
// together at pre-approval and cleared together by the check-in transition;
// CheckedInAt/CheckedOutAt are write-once.
type Visitor struct {
	ID           string        `db:"id" json:"id"`
	SocietyID    string        `db:"society_id" json:"society_id"`
	UnitID       string        `db:"unit_id" json:"unit_id"`
	HostID       string        `db:"host_id" json:"host_id"`
	Type         VisitorType   `db:"type" json:"type"`
	Status       VisitorStatus `db:"status" json:"status"`
	Name         string        `db:"name" json:"name"`
	Phone        *string       `db:"phone" json:"phone,omitempty"`
	Purpose      *string       `db:"purpose" json:"purpose,omitempty"`
	ExpectedDate *time.Time    `db:"expected_date" json:"expected_date,omitempty"`
	ExpectedTime *string       `db:"expected_time" json:"expected_time,omitempty"`
	OTP          *string       `db:"otp" json:"-"`
	OTPExpiresAt *time.Time    `db:"otp_expires_at" json:"otp_expires_at,omitempty"`
	DenyReason   *string       `db:"deny_reason" json:"deny_reason,omitempty"`
	CheckedInBy  *string       `db:"checked_in_by" json:"checked_in_by,omitempty"`
	CheckedOutBy *string       `db:"checked_out_by" json:"checked_out_by,omitempty"`
	CheckedInAt  *time.Time    `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time    `db:"checked_out_at" json:"checked_out_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// MaskedPhone returns the phone with all but the last two digits hidden,
// shown to roles other than the host resident.
func (v *Visitor) MaskedPhone() string {
	if v.Phone == nil || *v.Phone == "" {
		return ""
	}
	phone := *v.Phone
	if len(phone) <= 2 {
		return phone
	}
	masked := make([]byte, len(phone)-2)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + phone[len(phone)-2:]
}

// VisitorFilter constrains listing queries.
type VisitorFilter struct {
	SocietyID string
	UnitID    string
	HostID    string
	Status    []VisitorStatus
	Type      VisitorType
	Date      *time.Time
	Limit     int
	Offset    int
}
