package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	"github.com/reside-labs/societygate-api/internal/repository"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type issueStoreStub struct {
	issues map[string]*models.Issue
	// stale makes GetByID report an out-of-date status while the guarded
	// update checks the real one, simulating a lost race.
	stale map[string]models.IssueStatus
}

func newIssueStoreStub() *issueStoreStub {
	return &issueStoreStub{
		issues: make(map[string]*models.Issue),
		stale:  make(map[string]models.IssueStatus),
	}
}

func (s *issueStoreStub) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = "issue-" + issue.Title
	}
	copied := *issue
	s.issues[issue.ID] = &copied
	return nil
}

func (s *issueStoreStub) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	issue, ok := s.issues[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *issue
	if status, ok := s.stale[id]; ok {
		copied.Status = status
	}
	return &copied, nil
}

func (s *issueStoreStub) List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error) {
	var out []models.Issue
	for _, issue := range s.issues {
		if filter.SocietyID != "" && issue.SocietyID != filter.SocietyID {
			continue
		}
		if filter.RaisedBy != "" && issue.RaisedBy != filter.RaisedBy {
			continue
		}
		out = append(out, *issue)
	}
	return out, nil
}

func (s *issueStoreStub) UpdateStatus(ctx context.Context, params repository.UpdateIssueParams) error {
	issue, ok := s.issues[params.ID]
	if !ok || issue.Status != params.From {
		return sql.ErrNoRows
	}
	issue.Status = params.To
	issue.AssignedTo = params.AssignedTo
	issue.ResolvedBy = params.ResolvedBy
	issue.ResolvedAt = params.ResolvedAt
	return nil
}

type issueNotifierStub struct {
	events []string
}

func (n *issueNotifierStub) NotifyIssueUpdate(issue *models.Issue, event string) {
	n.events = append(n.events, event)
}

func issueResident() *models.JWTClaims {
	unitID := "unit-1"
	return &models.JWTClaims{UserID: "resident-1", SocietyID: "soc-1", UnitID: &unitID, Role: models.RoleResident}
}

func issueManager() *models.JWTClaims {
	return &models.JWTClaims{UserID: "manager-1", SocietyID: "soc-1", Role: models.RoleManager}
}

func TestIssueCreate(t *testing.T) {
	store := newIssueStoreStub()
	svc := NewIssueService(store, &auditStub{}, nil, nil)

	issue, err := svc.Create(context.Background(), dto.CreateIssueRequest{
		Category: "plumbing",
		Title:    "Leaking tap",
		Detail:   "Kitchen tap drips all night",
	}, issueResident())
	require.NoError(t, err)
	require.Equal(t, models.IssueStatusOpen, issue.Status)
	require.Equal(t, models.IssueCategoryPlumbing, issue.Category)
	require.Equal(t, "unit-1", issue.UnitID)
}

func TestIssueCreateGuardForbidden(t *testing.T) {
	svc := NewIssueService(newIssueStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateIssueRequest{
		Category: "OTHER",
		Title:    "Broken barrier",
		Detail:   "The boom barrier is stuck",
	}, &models.JWTClaims{UserID: "guard-1", SocietyID: "soc-1", Role: models.RoleGuard})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestIssueWorkflow(t *testing.T) {
	store := newIssueStoreStub()
	notifier := &issueNotifierStub{}
	svc := NewIssueService(store, &auditStub{}, notifier, nil)

	issue, err := svc.Create(context.Background(), dto.CreateIssueRequest{
		Category: "ELECTRICAL",
		Title:    "Corridor light out",
		Detail:   "Third floor corridor light not working",
	}, issueResident())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), issue.ID, dto.UpdateIssueStatusRequest{
		Status:     models.IssueStatusInProgress,
		AssignedTo: "electrician-1",
	}, issueManager())
	require.NoError(t, err)
	require.Equal(t, models.IssueStatusInProgress, updated.Status)

	resolved, err := svc.UpdateStatus(context.Background(), issue.ID, dto.UpdateIssueStatusRequest{
		Status: models.IssueStatusResolved,
	}, issueManager())
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedBy)
	require.Equal(t, "manager-1", *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
	require.Equal(t, []string{"IN_PROGRESS", "RESOLVED"}, notifier.events)

	// terminal, nothing moves a resolved complaint
	_, err = svc.UpdateStatus(context.Background(), issue.ID, dto.UpdateIssueStatusRequest{
		Status: models.IssueStatusInProgress,
	}, issueManager())
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestIssueUpdateLosesRace(t *testing.T) {
	store := newIssueStoreStub()
	svc := NewIssueService(store, &auditStub{}, nil, nil)

	issue, err := svc.Create(context.Background(), dto.CreateIssueRequest{
		Category: "SECURITY",
		Title:    "Gate camera down",
		Detail:   "North gate camera feed is dark",
	}, issueResident())
	require.NoError(t, err)

	// another manager resolved it between our read and our write
	store.issues[issue.ID].Status = models.IssueStatusResolved
	store.stale[issue.ID] = models.IssueStatusOpen

	_, err = svc.UpdateStatus(context.Background(), issue.ID, dto.UpdateIssueStatusRequest{
		Status: models.IssueStatusInProgress,
	}, issueManager())
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestIssueListScopesResident(t *testing.T) {
	store := newIssueStoreStub()
	svc := NewIssueService(store, &auditStub{}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateIssueRequest{
		Category: "OTHER",
		Title:    "Mine",
		Detail:   "Raised by resident-1",
	}, issueResident())
	require.NoError(t, err)
	store.issues["issue-other"] = &models.Issue{
		ID: "issue-other", SocietyID: "soc-1", UnitID: "unit-2",
		RaisedBy: "resident-2", Category: models.IssueCategoryOther,
		Status: models.IssueStatusOpen, Title: "Not mine",
	}

	mine, err := svc.List(context.Background(), models.IssueFilter{}, issueResident())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "resident-1", mine[0].RaisedBy)

	all, err := svc.List(context.Background(), models.IssueFilter{}, issueManager())
	require.NoError(t, err)
	require.Len(t, all, 2)
}
