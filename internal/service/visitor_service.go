package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	"github.com/reside-labs/societygate-api/internal/repository"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

// Visitor lifecycle events emitted to the notifier.
const (
	VisitorEventPending    = "VISITOR_PENDING"
	VisitorEventApproved   = "VISITOR_APPROVED"
	VisitorEventDenied     = "VISITOR_DENIED"
	VisitorEventCheckedIn  = "VISITOR_CHECKED_IN"
	VisitorEventCheckedOut = "VISITOR_CHECKED_OUT"
)

type visitorStore interface {
	Create(ctx context.Context, visitor *models.Visitor) error
	GetByID(ctx context.Context, id string) (*models.Visitor, error)
	List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, error)
	FindApprovedByOTP(ctx context.Context, societyID, code string) (*models.Visitor, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

type unitDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Unit, error)
	FindByNumber(ctx context.Context, societyID, number string) (*models.Unit, error)
}

type residentDirectory interface {
	FindResidentByUnit(ctx context.Context, unitID string) (*models.User, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// VisitorNotifier receives lifecycle events for asynchronous fan-out.
type VisitorNotifier interface {
	NotifyVisitorEvent(visitor *models.Visitor, event string)
}

// TransitionRecorder observes lifecycle and gate code outcomes.
type TransitionRecorder interface {
	RecordTransition(from, to models.VisitorStatus, outcome string)
	RecordOTPCheck(result string)
}

// VisitorService orchestrates the visitor lifecycle. Every status move runs
// through the repository's conditional write, so two actors racing on the
// same visitor resolve to exactly one winner; the loser gets a conflict.
type VisitorService struct {
	repo      visitorStore
	units     unitDirectory
	residents residentDirectory
	audit     auditLogger
	notifier  VisitorNotifier
	metrics   TransitionRecorder
	validate  *validator.Validate
	logger    *zap.Logger

	otpTTL        time.Duration
	actionTimeout time.Duration
	now           func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// VisitorServiceOption configures the service.
type VisitorServiceOption func(*VisitorService)

// WithVisitorNotifier attaches the notification fan-out.
func WithVisitorNotifier(n VisitorNotifier) VisitorServiceOption {
	return func(s *VisitorService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithVisitorMetrics attaches the transition and gate code counters.
func WithVisitorMetrics(m TransitionRecorder) VisitorServiceOption {
	return func(s *VisitorService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithVisitorClock overrides the time source.
func WithVisitorClock(now func() time.Time) VisitorServiceOption {
	return func(s *VisitorService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOTPTTL overrides the gate code validity window.
func WithOTPTTL(ttl time.Duration) VisitorServiceOption {
	return func(s *VisitorService) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// WithActionTimeout bounds each lifecycle action.
func WithActionTimeout(timeout time.Duration) VisitorServiceOption {
	return func(s *VisitorService) {
		if timeout > 0 {
			s.actionTimeout = timeout
		}
	}
}

// NewVisitorService constructs the service with defaults.
func NewVisitorService(repo visitorStore, units unitDirectory, residents residentDirectory, audit auditLogger, logger *zap.Logger, opts ...VisitorServiceOption) *VisitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &VisitorService{
		repo:          repo,
		units:         units,
		residents:     residents,
		audit:         audit,
		validate:      validator.New(),
		logger:        logger,
		otpTTL:        24 * time.Hour,
		actionTimeout: 15 * time.Second,
		now:           time.Now,
		inflight:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// PreApprove creates an expected visitor already approved by the host
// resident and returns the one-time gate code. The code is never readable
// again through the API.
func (s *VisitorService) PreApprove(ctx context.Context, req dto.PreApproveVisitorRequest, actor *models.JWTClaims) (*dto.PreApprovedVisitor, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleResident || actor.UnitID == nil {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pre-approval request")
	}
	visitorType := req.Type
	if visitorType == "" {
		visitorType = models.VisitorTypeExpected
	}
	if !visitorType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported visitor type")
	}
	now := s.now().UTC()
	expectedDate, err := time.Parse("2006-01-02", req.ExpectedDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expected_date must be YYYY-MM-DD")
	}
	if expectedDate.Before(now.Truncate(24 * time.Hour)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expected_date cannot be in the past")
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate gate code")
	}
	expiresAt := now.Add(s.otpTTL)

	visitor := &models.Visitor{
		SocietyID:    actor.SocietyID,
		UnitID:       *actor.UnitID,
		HostID:       actor.UserID,
		Type:         visitorType,
		Status:       models.VisitorStatusApproved,
		Name:         strings.TrimSpace(req.Name),
		Phone:        optionalVisitorField(req.Phone),
		Purpose:      optionalVisitorField(req.Purpose),
		ExpectedDate: &expectedDate,
		ExpectedTime: optionalVisitorField(req.ExpectedTime),
		OTP:          &code,
		OTPExpiresAt: &expiresAt,
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, visitor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create visitor")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorCreate, visitor.ID)
	s.notify(visitor, VisitorEventApproved)
	return &dto.PreApprovedVisitor{
		Visitor: s.view(visitor, actor),
		OTP:     code,
		Expires: expiresAt,
	}, nil
}

// RequestVisit records a visitor awaiting the host's decision.
func (s *VisitorService) RequestVisit(ctx context.Context, req dto.RequestVisitRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visit request")
	}
	visitorType := req.Type
	if visitorType == "" {
		visitorType = models.VisitorTypeExpected
	}
	if !visitorType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported visitor type")
	}
	unit, err := s.units.GetByID(ctx, req.UnitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnitNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	if unit.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrUnitNotFound
	}
	host, err := s.residents.FindResidentByUnit(ctx, unit.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unit has no registered resident")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve unit resident")
	}

	now := s.now().UTC()
	visitor := &models.Visitor{
		SocietyID: actor.SocietyID,
		UnitID:    unit.ID,
		HostID:    host.ID,
		Type:      visitorType,
		Status:    models.VisitorStatusPending,
		Name:      strings.TrimSpace(req.Name),
		Phone:     optionalVisitorField(req.Phone),
		Purpose:   optionalVisitorField(req.Purpose),
		CreatedAt: now,
	}
	if req.ExpectedDate != "" {
		expectedDate, err := time.Parse("2006-01-02", req.ExpectedDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expected_date must be YYYY-MM-DD")
		}
		visitor.ExpectedDate = &expectedDate
	}
	visitor.ExpectedTime = optionalVisitorField(req.ExpectedTime)

	if err := s.repo.Create(ctx, visitor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create visitor")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorCreate, visitor.ID)
	s.notify(visitor, VisitorEventPending)
	return s.view(visitor, actor), nil
}

// Approve moves a pending visitor to APPROVED on behalf of its host.
func (s *VisitorService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	visitor, err := s.loadForHost(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if visitor.Status != models.VisitorStatusPending {
		return nil, appErrors.ErrAlreadyProcessed
	}
	if err := s.transition(ctx, repository.TransitionParams{
		ID:   visitor.ID,
		From: models.VisitorStatusPending,
		To:   models.VisitorStatusApproved,
	}); err != nil {
		return nil, err
	}
	visitor.Status = models.VisitorStatusApproved
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorApprove, visitor.ID)
	s.notify(visitor, VisitorEventApproved)
	return s.view(visitor, actor), nil
}

// Deny moves a pending visitor to DENIED with an optional reason.
func (s *VisitorService) Deny(ctx context.Context, id string, req dto.DenyVisitorRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	visitor, err := s.loadForHost(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if visitor.Status != models.VisitorStatusPending {
		return nil, appErrors.ErrAlreadyProcessed
	}
	reason := optionalVisitorField(req.Reason)
	if err := s.transition(ctx, repository.TransitionParams{
		ID:         visitor.ID,
		From:       models.VisitorStatusPending,
		To:         models.VisitorStatusDenied,
		DenyReason: reason,
	}); err != nil {
		return nil, err
	}
	visitor.Status = models.VisitorStatusDenied
	visitor.DenyReason = reason
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorDeny, visitor.ID)
	s.notify(visitor, VisitorEventDenied)
	return s.view(visitor, actor), nil
}

// Cancel revokes a host's own upcoming pre-approval. Past visits and
// visitors already at the gate cannot be cancelled.
func (s *VisitorService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	visitor, err := s.loadForHost(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if visitor.Status != models.VisitorStatusApproved {
		return nil, appErrors.ErrAlreadyProcessed
	}
	now := s.now().UTC()
	if visitor.ExpectedDate != nil && visitor.ExpectedDate.Before(now.Truncate(24*time.Hour)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "past visits cannot be cancelled")
	}
	reason := "cancelled by host"
	if err := s.transition(ctx, repository.TransitionParams{
		ID:         visitor.ID,
		From:       models.VisitorStatusApproved,
		To:         models.VisitorStatusDenied,
		DenyReason: &reason,
	}); err != nil {
		return nil, err
	}
	visitor.Status = models.VisitorStatusDenied
	visitor.DenyReason = &reason
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorDeny, visitor.ID)
	s.notify(visitor, VisitorEventDenied)
	return s.view(visitor, actor), nil
}

// CheckIn admits an approved visitor identified by id (the QR path).
func (s *VisitorService) CheckIn(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	if err := requireGate(actor); err != nil {
		return nil, err
	}
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	visitor, err := s.loadForSociety(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if visitor.Status != models.VisitorStatusApproved {
		return nil, appErrors.ErrAlreadyProcessed
	}
	now := s.now().UTC()
	if visitor.OTPExpiresAt != nil && !now.Before(*visitor.OTPExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrOTPExpired, "entry window has elapsed")
	}
	return s.admit(ctx, visitor, actor, now)
}

// CheckInByOTP admits an approved visitor authenticated by gate code. An
// unknown code reads as incorrect; a known but stale one as expired.
func (s *VisitorService) CheckInByOTP(ctx context.Context, req dto.CheckInByOTPRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	if err := requireGate(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.ErrOTPInvalid
	}
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	visitor, err := s.repo.FindApprovedByOTP(ctx, actor.SocietyID, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordOTPCheck("invalid")
			return nil, appErrors.ErrOTPInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve gate code")
	}
	now := s.now().UTC()
	if err := VerifyOTP(req.Code, visitor.OTP, visitor.OTPExpiresAt, now); err != nil {
		if errors.Is(err, appErrors.ErrOTPExpired) {
			s.recordOTPCheck("expired")
		} else {
			s.recordOTPCheck("invalid")
		}
		return nil, err
	}
	s.recordOTPCheck("ok")
	release, err := s.acquire(visitor.ID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.admit(ctx, visitor, actor, now)
}

// CheckOut records a checked-in visitor leaving the premises.
func (s *VisitorService) CheckOut(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	if err := requireGate(actor); err != nil {
		return nil, err
	}
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	visitor, err := s.loadForSociety(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if visitor.Status != models.VisitorStatusCheckedIn {
		return nil, appErrors.ErrAlreadyProcessed
	}
	now := s.now().UTC()
	if err := s.transition(ctx, repository.TransitionParams{
		ID:      visitor.ID,
		From:    models.VisitorStatusCheckedIn,
		To:      models.VisitorStatusCheckedOut,
		GuardID: actor.UserID,
		At:      now,
	}); err != nil {
		return nil, err
	}
	visitor.Status = models.VisitorStatusCheckedOut
	visitor.CheckedOutBy = &actor.UserID
	visitor.CheckedOutAt = &now
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorCheckOut, visitor.ID)
	s.notify(visitor, VisitorEventCheckedOut)
	return s.view(visitor, actor), nil
}

// RegisterWalkIn records an unannounced visitor at the gate. The destination
// unit is resolved by exact number; the visitor enters the register already
// checked in.
func (s *VisitorService) RegisterWalkIn(ctx context.Context, req dto.WalkInRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	if err := requireGate(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid walk-in request")
	}
	visitorType := req.Type
	if visitorType == "" {
		visitorType = models.VisitorTypeWalkIn
	}
	if !visitorType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported visitor type")
	}
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	unit, err := s.units.FindByNumber(ctx, actor.SocietyID, req.UnitNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnitNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve unit")
	}
	host, err := s.residents.FindResidentByUnit(ctx, unit.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unit has no registered resident")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve unit resident")
	}

	now := s.now().UTC()
	visitor := &models.Visitor{
		SocietyID:   actor.SocietyID,
		UnitID:      unit.ID,
		HostID:      host.ID,
		Type:        visitorType,
		Status:      models.VisitorStatusCheckedIn,
		Name:        strings.TrimSpace(req.Name),
		Phone:       optionalVisitorField(req.Phone),
		Purpose:     optionalVisitorField(req.Purpose),
		CheckedInBy: &actor.UserID,
		CheckedInAt: &now,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, visitor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register walk-in")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorCheckIn, visitor.ID)
	s.notify(visitor, VisitorEventCheckedIn)
	return s.view(visitor, actor), nil
}

// Get returns one visitor respecting role scope.
func (s *VisitorService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	visitor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visitor")
	}
	if visitor.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleResident && visitor.HostID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return s.view(visitor, actor), nil
}

// List returns visitors scoped by role: residents see their own hosted
// visits, gate and management staff see the society register.
func (s *VisitorService) List(ctx context.Context, query dto.VisitorQuery, actor *models.JWTClaims) ([]dto.VisitorView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.VisitorFilter{
		SocietyID: actor.SocietyID,
		Status:    query.Status,
		Date:      query.Date,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	switch actor.Role {
	case models.RoleResident:
		filter.HostID = actor.UserID
	case models.RoleGuard, models.RoleManager, models.RoleAdmin:
		filter.UnitID = query.UnitID
	default:
		return nil, appErrors.ErrForbidden
	}
	visitors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list visitors")
	}
	views := make([]dto.VisitorView, 0, len(visitors))
	for i := range visitors {
		views = append(views, *s.view(&visitors[i], actor))
	}
	return views, nil
}

// admit performs the APPROVED -> CHECKED_IN move shared by both entry paths.
func (s *VisitorService) admit(ctx context.Context, visitor *models.Visitor, actor *models.JWTClaims, now time.Time) (*dto.VisitorView, error) {
	if err := s.transition(ctx, repository.TransitionParams{
		ID:      visitor.ID,
		From:    models.VisitorStatusApproved,
		To:      models.VisitorStatusCheckedIn,
		GuardID: actor.UserID,
		At:      now,
	}); err != nil {
		return nil, err
	}
	visitor.Status = models.VisitorStatusCheckedIn
	visitor.CheckedInBy = &actor.UserID
	visitor.CheckedInAt = &now
	visitor.OTP = nil
	visitor.OTPExpiresAt = nil
	s.emitAudit(ctx, actor.UserID, models.AuditActionVisitorCheckIn, visitor.ID)
	s.notify(visitor, VisitorEventCheckedIn)
	return s.view(visitor, actor), nil
}

func (s *VisitorService) transition(ctx context.Context, params repository.TransitionParams) error {
	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordTransition(params, "conflict")
			return appErrors.ErrAlreadyProcessed
		}
		s.recordTransition(params, "error")
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update visitor status")
	}
	s.recordTransition(params, "ok")
	return nil
}

func (s *VisitorService) recordTransition(params repository.TransitionParams, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(params.From, params.To, outcome)
	}
}

func (s *VisitorService) recordOTPCheck(result string) {
	if s.metrics != nil {
		s.metrics.RecordOTPCheck(result)
	}
}

// acquire claims the per-visitor action slot. A second action on the same
// visitor while the first is still running is rejected rather than queued.
func (s *VisitorService) acquire(id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return nil, appErrors.ErrActionInFlight
	}
	s.inflight[id] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}, nil
}

func (s *VisitorService) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.actionTimeout)
}

// loadForHost fetches a visitor and verifies the actor is its host resident.
func (s *VisitorService) loadForHost(ctx context.Context, id string, actor *models.JWTClaims) (*models.Visitor, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	visitor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visitor")
	}
	if visitor.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrNotFound
	}
	if visitor.HostID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return visitor, nil
}

// loadForSociety fetches a visitor within the actor's society.
func (s *VisitorService) loadForSociety(ctx context.Context, id string, actor *models.JWTClaims) (*models.Visitor, error) {
	visitor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visitor")
	}
	if visitor.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrNotFound
	}
	return visitor, nil
}

func (s *VisitorService) view(v *models.Visitor, actor *models.JWTClaims) *dto.VisitorView {
	view := &dto.VisitorView{
		ID:           v.ID,
		SocietyID:    v.SocietyID,
		UnitID:       v.UnitID,
		HostID:       v.HostID,
		Type:         v.Type,
		Status:       v.Status,
		Name:         v.Name,
		ExpectedDate: v.ExpectedDate,
		CheckedInAt:  v.CheckedInAt,
		CheckedOutAt: v.CheckedOutAt,
		CreatedAt:    v.CreatedAt,
	}
	if v.ExpectedTime != nil {
		view.ExpectedTime = *v.ExpectedTime
	}
	if v.Purpose != nil {
		view.Purpose = *v.Purpose
	}
	if v.DenyReason != nil {
		view.DenyReason = *v.DenyReason
	}
	if v.Phone != nil {
		if actor != nil && actor.UserID == v.HostID {
			view.Phone = *v.Phone
		} else {
			view.Phone = v.MaskedPhone()
		}
	}
	return view
}

func (s *VisitorService) emitAudit(ctx context.Context, userID, action, visitorID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "visitor",
		ResourceID: &visitorID,
		IPAddress:  "system",
		UserAgent:  "visitor-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *VisitorService) notify(visitor *models.Visitor, event string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyVisitorEvent(visitor, event)
}

func requireGate(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleGuard, models.RoleManager, models.RoleAdmin:
		return nil
	}
	return appErrors.ErrForbidden
}

func optionalVisitorField(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
