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
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type announcementStore interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementBroadcaster fans a published notice out to its audience.
type AnnouncementBroadcaster interface {
	BroadcastAnnouncement(announcement *models.Announcement)
}

// AnnouncementService manages society notices. Publishing is synchronous;
// the emergency fan-out rides the notification queue and never delays the
// publishing request.
type AnnouncementService struct {
	repo        announcementStore
	broadcaster AnnouncementBroadcaster
	audit       auditLogger
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementStore, broadcaster AnnouncementBroadcaster, audit auditLogger, logger *zap.Logger) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:        repo,
		broadcaster: broadcaster,
		audit:       audit,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Create publishes an announcement on behalf of management.
func (s *AnnouncementService) Create(ctx context.Context, req dto.CreateAnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	audience := models.AnnouncementAudience(strings.ToUpper(string(req.Audience)))
	switch audience {
	case models.AnnouncementAudienceAll, models.AnnouncementAudienceResidents,
		models.AnnouncementAudienceGuards, models.AnnouncementAudienceBlock:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported audience")
	}
	if audience == models.AnnouncementAudienceBlock && req.TargetBlockID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_block_id is required for BLOCK audience")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.AnnouncementPriorityNormal
	}

	announcement := &models.Announcement{
		SocietyID: actor.SocietyID,
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		Audience:  audience,
		Priority:  priority,
		IsPinned:  req.IsPinned,
		CreatedBy: actor.UserID,
	}
	if req.TargetBlockID != "" {
		announcement.TargetBlockID = &req.TargetBlockID
	}
	if req.ExpiresAt != "" {
		expires, err := time.Parse("2006-01-02", req.ExpiresAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be YYYY-MM-DD")
		}
		announcement.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	s.emitAudit(ctx, actor.UserID, announcement.ID)
	if announcement.Priority == models.AnnouncementPriorityEmergency && s.broadcaster != nil {
		s.broadcaster.BroadcastAnnouncement(announcement)
	}
	return announcement, nil
}

// List returns the notices visible to the actor's role.
func (s *AnnouncementService) List(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.Announcement, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.AnnouncementFilter{
		SocietyID:     actor.SocietyID,
		AudienceRoles: []models.UserRole{actor.Role},
		Page:          page,
		PageSize:      pageSize,
	}
	announcements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return announcements, total, nil
}

// Delete removes a notice. Only management may delete, and only within its
// own society.
func (s *AnnouncementService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if announcement.SocietyID != actor.SocietyID {
		return appErrors.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) emitAudit(ctx context.Context, userID, announcementID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionAnnouncement,
		Resource:   "announcement",
		ResourceID: &announcementID,
		IPAddress:  "system",
		UserAgent:  "announcement-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
