package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleManager  UserRole = "MANAGER"
	RoleGuard    UserRole = "GUARD"
	RoleResident UserRole = "RESIDENT"
)

// User represents an application user. Residents and guards authenticate
// with phone OTP, so PasswordHash is nullable; staff use email + password.
type User struct {
	ID           string     `db:"id" json:"id"`
	SocietyID    string     `db:"society_id" json:"society_id"`
	UnitID       *string    `db:"unit_id" json:"unit_id,omitempty"`
	Phone        string     `db:"phone" json:"phone"`
	Email        *string    `db:"email" json:"email,omitempty"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	SocietyID string
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
