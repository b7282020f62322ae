package dto

import (
	"time"

	"github.com/reside-labs/societygate-api/internal/models"
)

// DashboardSummary aggregates society counts for the manager home screen.
// Block and visitor figures are loaded with concurrent fan-out and cached.
type DashboardSummary struct {
	Society       *models.Society       `json:"society"`
	Blocks        []models.BlockSummary `json:"blocks"`
	TotalUnits    int                   `json:"total_units"`
	OccupiedUnits int                   `json:"occupied_units"`
	VisitorsToday VisitorCounts         `json:"visitors_today"`
	OpenIssues    int                   `json:"open_issues"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// VisitorCounts breaks today's visitors down by lifecycle state.
type VisitorCounts struct {
	Expected   int `json:"expected"`
	CheckedIn  int `json:"checked_in"`
	CheckedOut int `json:"checked_out"`
	Denied     int `json:"denied"`
}
