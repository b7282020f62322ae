package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	"github.com/reside-labs/societygate-api/internal/repository"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type issueStore interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error)
	UpdateStatus(ctx context.Context, params repository.UpdateIssueParams) error
}

// IssueNotifier tells the reporter their complaint moved.
type IssueNotifier interface {
	NotifyIssueUpdate(issue *models.Issue, event string)
}

// issueTransitions mirrors the visitor graph discipline: OPEN can be picked
// up or resolved directly, IN_PROGRESS only resolved.
var issueTransitions = map[models.IssueStatus][]models.IssueStatus{
	models.IssueStatusOpen:       {models.IssueStatusInProgress, models.IssueStatusResolved},
	models.IssueStatusInProgress: {models.IssueStatusResolved},
}

// IssueService manages maintenance complaints.
type IssueService struct {
	repo     issueStore
	audit    auditLogger
	notifier IssueNotifier
	validate *validator.Validate
	logger   *zap.Logger
}

// NewIssueService constructs the service.
func NewIssueService(repo issueStore, audit auditLogger, notifier IssueNotifier, logger *zap.Logger) *IssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create raises a complaint for the resident's own unit.
func (s *IssueService) Create(ctx context.Context, req dto.CreateIssueRequest, actor *models.JWTClaims) (*models.Issue, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleResident || actor.UnitID == nil {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issue payload")
	}
	category := models.IssueCategory(strings.ToUpper(string(req.Category)))
	switch category {
	case models.IssueCategoryPlumbing, models.IssueCategoryElectrical,
		models.IssueCategoryHousekeeping, models.IssueCategorySecurity, models.IssueCategoryOther:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported issue category")
	}

	issue := &models.Issue{
		SocietyID: actor.SocietyID,
		UnitID:    *actor.UnitID,
		RaisedBy:  actor.UserID,
		Category:  category,
		Status:    models.IssueStatusOpen,
		Title:     strings.TrimSpace(req.Title),
		Detail:    strings.TrimSpace(req.Detail),
	}
	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create issue")
	}
	return issue, nil
}

// UpdateStatus moves a complaint along its workflow on behalf of management.
// The write is guarded on the current status, so concurrent updates resolve
// to one winner.
func (s *IssueService) UpdateStatus(ctx context.Context, id string, req dto.UpdateIssueStatusRequest, actor *models.JWTClaims) (*models.Issue, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issue update")
	}

	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issue")
	}
	if issue.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrNotFound
	}
	if !issueCanTransition(issue.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "issue already processed")
	}

	now := time.Now().UTC()
	params := repository.UpdateIssueParams{
		ID:   issue.ID,
		From: issue.Status,
		To:   req.Status,
	}
	if req.AssignedTo != "" {
		params.AssignedTo = &req.AssignedTo
	}
	if req.Status == models.IssueStatusResolved {
		params.ResolvedBy = &actor.UserID
		params.ResolvedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "issue already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update issue")
	}

	issue.Status = req.Status
	issue.AssignedTo = params.AssignedTo
	issue.ResolvedBy = params.ResolvedBy
	issue.ResolvedAt = params.ResolvedAt
	issue.UpdatedAt = now
	s.emitAudit(ctx, actor.UserID, issue.ID)
	if s.notifier != nil {
		s.notifier.NotifyIssueUpdate(issue, string(req.Status))
	}
	return issue, nil
}

// List returns complaints scoped by role: residents see their own, staff
// see the society.
func (s *IssueService) List(ctx context.Context, filter models.IssueFilter, actor *models.JWTClaims) ([]models.Issue, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter.SocietyID = actor.SocietyID
	switch actor.Role {
	case models.RoleResident:
		filter.RaisedBy = actor.UserID
	case models.RoleManager, models.RoleAdmin:
		// society-wide
	default:
		return nil, appErrors.ErrForbidden
	}
	issues, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list issues")
	}
	return issues, nil
}

func issueCanTransition(from, to models.IssueStatus) bool {
	for _, next := range issueTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *IssueService) emitAudit(ctx context.Context, userID, issueID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionIssueUpdate,
		Resource:   "issue",
		ResourceID: &issueID,
		IPAddress:  "system",
		UserAgent:  "issue-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
