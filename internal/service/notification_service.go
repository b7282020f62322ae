package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
	"github.com/reside-labs/societygate-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type fanoutDirectory interface {
	ListIDsByRoles(ctx context.Context, societyID string, roles []models.UserRole) ([]string, error)
}

type visitorEventJob struct {
	Visitor models.Visitor
	Event   string
}

type announcementJob struct {
	Announcement models.Announcement
}

type issueEventJob struct {
	Issue models.Issue
	Event string
}

// NotificationService persists per-user inbox rows and fans lifecycle and
// announcement events out through a background queue. Enqueueing never
// blocks the originating request; failed deliveries retry and are dropped.
type enqueueRecorder interface {
	RecordNotificationEnqueued()
}

type NotificationService struct {
	store     notificationStore
	directory fanoutDirectory
	queue     *jobs.Queue
	metrics   enqueueRecorder
	logger    *zap.Logger
}

// NewNotificationService constructs the service and its fan-out queue.
func NewNotificationService(store notificationStore, directory fanoutDirectory, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{store: store, directory: directory, logger: logger}
	cfg.Logger = logger
	svc.queue = jobs.NewQueue("notifications", svc.process, cfg)
	return svc
}

// SetMetrics attaches the enqueue counter. Optional.
func (s *NotificationService) SetMetrics(m enqueueRecorder) {
	s.metrics = m
}

// Start launches the fan-out workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyVisitorEvent implements VisitorNotifier. Events are queued with a
// copy of the visitor so later mutations don't leak into the fan-out.
func (s *NotificationService) NotifyVisitorEvent(visitor *models.Visitor, event string) {
	if visitor == nil {
		return
	}
	s.enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "visitor_event",
		Payload: visitorEventJob{Visitor: *visitor, Event: event},
	})
}

// BroadcastAnnouncement queues the audience fan-out for one announcement.
func (s *NotificationService) BroadcastAnnouncement(announcement *models.Announcement) {
	if announcement == nil {
		return
	}
	s.enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "announcement",
		Payload: announcementJob{Announcement: *announcement},
	})
}

// NotifyIssueUpdate queues a status-change notice for the issue's reporter.
func (s *NotificationService) NotifyIssueUpdate(issue *models.Issue, event string) {
	if issue == nil {
		return
	}
	s.enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "issue_event",
		Payload: issueEventJob{Issue: *issue, Event: event},
	})
}

// List returns a user's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one inbox entry as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

func (s *NotificationService) enqueue(job jobs.Job) {
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification job",
			zap.String("type", job.Type), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordNotificationEnqueued()
	}
}

func (s *NotificationService) process(ctx context.Context, job jobs.Job) error {
	switch payload := job.Payload.(type) {
	case visitorEventJob:
		return s.deliverVisitorEvent(ctx, payload)
	case announcementJob:
		return s.deliverAnnouncement(ctx, payload.Announcement)
	case issueEventJob:
		return s.deliverIssueEvent(ctx, payload)
	default:
		s.logger.Warn("unknown notification job payload", zap.String("type", job.Type))
		return nil
	}
}

// deliverVisitorEvent routes each lifecycle event to the party that has to
// act on it: the host decides on pending requests and tracks entries, the
// gate staff watch for approvals and denials.
func (s *NotificationService) deliverVisitorEvent(ctx context.Context, payload visitorEventJob) error {
	visitor := payload.Visitor
	var title, body string
	recipients := []string{visitor.HostID}
	switch payload.Event {
	case VisitorEventPending:
		title = "Visitor approval needed"
		body = fmt.Sprintf("%s is waiting for your approval", visitor.Name)
	case VisitorEventApproved:
		title = "Visitor approved"
		body = fmt.Sprintf("%s is expected at the gate", visitor.Name)
		guardIDs, err := s.directory.ListIDsByRoles(ctx, visitor.SocietyID, []models.UserRole{models.RoleGuard})
		if err != nil {
			return fmt.Errorf("resolve gate staff: %w", err)
		}
		recipients = guardIDs
	case VisitorEventDenied:
		title = "Visitor denied"
		body = fmt.Sprintf("Entry for %s was denied", visitor.Name)
		guardIDs, err := s.directory.ListIDsByRoles(ctx, visitor.SocietyID, []models.UserRole{models.RoleGuard})
		if err != nil {
			return fmt.Errorf("resolve gate staff: %w", err)
		}
		recipients = guardIDs
	case VisitorEventCheckedIn:
		title = "Visitor checked in"
		body = fmt.Sprintf("%s has entered the premises", visitor.Name)
	case VisitorEventCheckedOut:
		title = "Visitor checked out"
		body = fmt.Sprintf("%s has left the premises", visitor.Name)
	default:
		return nil
	}
	return s.createAll(ctx, recipients, models.NotificationKindVisitor, title, body, visitor.ID)
}

func (s *NotificationService) deliverAnnouncement(ctx context.Context, announcement models.Announcement) error {
	var roles []models.UserRole
	switch announcement.Audience {
	case models.AnnouncementAudienceResidents:
		roles = []models.UserRole{models.RoleResident}
	case models.AnnouncementAudienceGuards:
		roles = []models.UserRole{models.RoleGuard}
	default:
		roles = []models.UserRole{models.RoleResident, models.RoleGuard, models.RoleManager}
	}
	recipients, err := s.directory.ListIDsByRoles(ctx, announcement.SocietyID, roles)
	if err != nil {
		return fmt.Errorf("resolve announcement audience: %w", err)
	}
	title := announcement.Title
	if announcement.Priority == models.AnnouncementPriorityEmergency {
		title = "EMERGENCY: " + title
	}
	return s.createAll(ctx, recipients, models.NotificationKindAnnouncement, title, announcement.Content, announcement.ID)
}

func (s *NotificationService) deliverIssueEvent(ctx context.Context, payload issueEventJob) error {
	issue := payload.Issue
	title := "Complaint updated"
	body := fmt.Sprintf("%q is now %s", issue.Title, issue.Status)
	return s.createAll(ctx, []string{issue.RaisedBy}, models.NotificationKindIssue, title, body, issue.ID)
}

func (s *NotificationService) createAll(ctx context.Context, userIDs []string, kind models.NotificationKind, title, body, refID string) error {
	var firstErr error
	for _, userID := range userIDs {
		n := &models.Notification{
			UserID: userID,
			Kind:   kind,
			Title:  title,
			Body:   body,
			RefID:  &refID,
		}
		if err := s.store.Create(ctx, n); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("failed to store notification",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	return firstErr
}
