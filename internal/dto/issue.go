package dto

import "github.com/reside-labs/societygate-api/internal/models"

// CreateIssueRequest raises a maintenance complaint for the caller's unit.
type CreateIssueRequest struct {
	Category models.IssueCategory `json:"category" validate:"required"`
	Title    string               `json:"title" validate:"required"`
	Detail   string               `json:"detail" validate:"required"`
}

// UpdateIssueStatusRequest moves an issue along its workflow.
type UpdateIssueStatusRequest struct {
	Status     models.IssueStatus `json:"status" validate:"required"`
	AssignedTo string             `json:"assigned_to"`
}
