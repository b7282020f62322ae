package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	"github.com/reside-labs/societygate-api/internal/repository"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type visitorRepoStub struct {
	visitors map[string]*models.Visitor
	// stale makes GetByID report an out-of-date status for a visitor while
	// the stored row keeps the real one, simulating a lost race.
	stale  map[string]models.VisitorStatus
	filter models.VisitorFilter
}

func newVisitorRepoStub() *visitorRepoStub {
	return &visitorRepoStub{
		visitors: make(map[string]*models.Visitor),
		stale:    make(map[string]models.VisitorStatus),
	}
}

func (m *visitorRepoStub) Create(ctx context.Context, visitor *models.Visitor) error {
	if visitor.ID == "" {
		visitor.ID = fmt.Sprintf("visitor-%d", len(m.visitors)+1)
	}
	stored := *visitor
	m.visitors[visitor.ID] = &stored
	return nil
}

func (m *visitorRepoStub) GetByID(ctx context.Context, id string) (*models.Visitor, error) {
	stored, ok := m.visitors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *stored
	if status, ok := m.stale[id]; ok {
		copy.Status = status
	}
	return &copy, nil
}

func (m *visitorRepoStub) List(ctx context.Context, filter models.VisitorFilter) ([]models.Visitor, error) {
	m.filter = filter
	result := make([]models.Visitor, 0, len(m.visitors))
	for _, v := range m.visitors {
		result = append(result, *v)
	}
	return result, nil
}

func (m *visitorRepoStub) FindApprovedByOTP(ctx context.Context, societyID, code string) (*models.Visitor, error) {
	for _, v := range m.visitors {
		if v.SocietyID == societyID && v.Status == models.VisitorStatusApproved && v.OTP != nil && *v.OTP == code {
			copy := *v
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *visitorRepoStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	stored, ok := m.visitors[params.ID]
	if !ok || stored.Status != params.From {
		return sql.ErrNoRows
	}
	stored.Status = params.To
	switch params.To {
	case models.VisitorStatusCheckedIn:
		stored.CheckedInBy = &params.GuardID
		stored.CheckedInAt = &params.At
		stored.OTP = nil
		stored.OTPExpiresAt = nil
	case models.VisitorStatusCheckedOut:
		stored.CheckedOutBy = &params.GuardID
		stored.CheckedOutAt = &params.At
	case models.VisitorStatusDenied:
		stored.DenyReason = params.DenyReason
	}
	return nil
}

type unitDirectoryStub struct {
	units map[string]*models.Unit
}

func (m *unitDirectoryStub) GetByID(ctx context.Context, id string) (*models.Unit, error) {
	if unit, ok := m.units[id]; ok {
		copy := *unit
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *unitDirectoryStub) FindByNumber(ctx context.Context, societyID, number string) (*models.Unit, error) {
	for _, unit := range m.units {
		if unit.SocietyID == societyID && unit.Number == number {
			copy := *unit
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

type residentDirectoryStub struct {
	residents map[string]*models.User // keyed by unit id
}

func (m *residentDirectoryStub) FindResidentByUnit(ctx context.Context, unitID string) (*models.User, error) {
	if user, ok := m.residents[unitID]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newVisitorFixture(t *testing.T) (*VisitorService, *visitorRepoStub, *auditStub, *time.Time) {
	t.Helper()
	repo := newVisitorRepoStub()
	audit := &auditStub{}
	units := &unitDirectoryStub{units: map[string]*models.Unit{
		"unit-1": {ID: "unit-1", SocietyID: "soc-1", Number: "A-101"},
	}}
	residents := &residentDirectoryStub{residents: map[string]*models.User{
		"unit-1": {ID: "resident-1", SocietyID: "soc-1", Role: models.RoleResident},
	}}
	now := fixedNow
	svc := NewVisitorService(repo, units, residents, audit, nil,
		WithVisitorClock(func() time.Time { return now }))
	return svc, repo, audit, &now
}

func residentClaims() *models.JWTClaims {
	unitID := "unit-1"
	return &models.JWTClaims{UserID: "resident-1", SocietyID: "soc-1", UnitID: &unitID, Role: models.RoleResident}
}

func guardClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "guard-1", SocietyID: "soc-1", Role: models.RoleGuard}
}

func TestVisitorServicePreApprove(t *testing.T) {
	svc, repo, audit, _ := newVisitorFixture(t)

	result, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		Phone:        "9876543210",
		ExpectedDate: "2026-03-10",
	}, residentClaims())
	require.NoError(t, err)
	require.Equal(t, models.VisitorStatusApproved, result.Visitor.Status)
	require.Len(t, result.OTP, 6)
	require.Equal(t, fixedNow.Add(24*time.Hour), result.Expires)
	require.Len(t, audit.logs, 1)

	stored := repo.visitors[result.Visitor.ID]
	require.NotNil(t, stored.OTP)
	require.Equal(t, result.OTP, *stored.OTP)
	// host sees the full phone number
	require.Equal(t, "9876543210", result.Visitor.Phone)
}

func TestVisitorServicePreApproveRejectsPastDate(t *testing.T) {
	svc, _, _, _ := newVisitorFixture(t)

	_, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		ExpectedDate: "2026-03-01",
	}, residentClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestVisitorServicePreApproveGuardForbidden(t *testing.T) {
	svc, _, _, _ := newVisitorFixture(t)

	_, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		ExpectedDate: "2026-03-10",
	}, guardClaims())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestVisitorServiceCheckInByOTP(t *testing.T) {
	svc, repo, _, _ := newVisitorFixture(t)

	approved, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		ExpectedDate: "2026-03-10",
	}, residentClaims())
	require.NoError(t, err)

	view, err := svc.CheckInByOTP(context.Background(), dto.CheckInByOTPRequest{Code: approved.OTP}, guardClaims())
	require.NoError(t, err)
	require.Equal(t, models.VisitorStatusCheckedIn, view.Status)
	require.NotNil(t, view.CheckedInAt)

	// the code is consumed by the check-in, so a replay reads as incorrect
	stored := repo.visitors[view.ID]
	require.Nil(t, stored.OTP)
	require.Nil(t, stored.OTPExpiresAt)
	_, err = svc.CheckInByOTP(context.Background(), dto.CheckInByOTPRequest{Code: approved.OTP}, guardClaims())
	require.ErrorIs(t, err, appErrors.ErrOTPInvalid)
}

func TestVisitorServiceCheckInByOTPExpired(t *testing.T) {
	svc, _, _, now := newVisitorFixture(t)

	approved, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		ExpectedDate: "2026-03-10",
	}, residentClaims())
	require.NoError(t, err)

	*now = fixedNow.Add(25 * time.Hour)
	_, err = svc.CheckInByOTP(context.Background(), dto.CheckInByOTPRequest{Code: approved.OTP}, guardClaims())
	require.ErrorIs(t, err, appErrors.ErrOTPExpired)
}

func TestVisitorServiceCheckInByOTPWrongCode(t *testing.T) {
	svc, _, _, _ := newVisitorFixture(t)

	_, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		ExpectedDate: "2026-03-10",
	}, residentClaims())
	require.NoError(t, err)

	_, err = svc.CheckInByOTP(context.Background(), dto.CheckInByOTPRequest{Code: "000000"}, guardClaims())
	require.ErrorIs(t, err, appErrors.ErrOTPInvalid)
}

func TestVisitorServiceApproveDenyRace(t *testing.T) {
	svc, repo, _, _ := newVisitorFixture(t)
	repo.visitors["visitor-1"] = &models.Visitor{
		ID: "visitor-1", SocietyID: "soc-1", UnitID: "unit-1", HostID: "resident-1",
		Type: models.VisitorTypeExpected, Status: models.VisitorStatusPending,
		Name: "Ravi Kumar", CreatedAt: fixedNow,
	}

	view, err := svc.Approve(context.Background(), "visitor-1", residentClaims())
	require.NoError(t, err)
	require.Equal(t, models.VisitorStatusApproved, view.Status)

	// a deny landing after the approve, reading a stale PENDING copy, loses
	// the conditional write and surfaces as a conflict
	repo.stale["visitor-1"] = models.VisitorStatusPending
	_, err = svc.Deny(context.Background(), "visitor-1", dto.DenyVisitorRequest{Reason: "no"}, residentClaims())
	require.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
	require.Equal(t, models.VisitorStatusApproved, repo.visitors["visitor-1"].Status)
}

func TestVisitorServiceApproveNonOwnerForbidden(t *testing.T) {
	svc, repo, _, _ := newVisitorFixture(t)
	repo.visitors["visitor-1"] = &models.Visitor{
		ID: "visitor-1", SocietyID: "soc-1", UnitID: "unit-1", HostID: "resident-1",
		Status: models.VisitorStatusPending, Name: "Ravi Kumar", CreatedAt: fixedNow,
	}

	other := residentClaims()
	other.UserID = "resident-2"
	_, err := svc.Approve(context.Background(), "visitor-1", other)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestVisitorServiceCheckOutRequiresCheckedIn(t *testing.T) {
	svc, repo, _, _ := newVisitorFixture(t)
	repo.visitors["visitor-1"] = &models.Visitor{
		ID: "visitor-1", SocietyID: "soc-1", UnitID: "unit-1", HostID: "resident-1",
		Status: models.VisitorStatusApproved, Name: "Ravi Kumar", CreatedAt: fixedNow,
	}

	_, err := svc.CheckOut(context.Background(), "visitor-1", guardClaims())
	require.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
}

func TestVisitorServiceWalkInCannotBeApproved(t *testing.T) {
	svc, _, _, _ := newVisitorFixture(t)

	view, err := svc.RegisterWalkIn(context.Background(), dto.WalkInRequest{
		Name:       "Courier",
		UnitNumber: "A-101",
		Type:       models.VisitorTypeDelivery,
	}, guardClaims())
	require.NoError(t, err)
	require.Equal(t, models.VisitorStatusCheckedIn, view.Status)
	require.NotNil(t, view.CheckedInAt)

	// a walk-in was never pending, so a host approval has nothing to move
	_, err = svc.Approve(context.Background(), view.ID, residentClaims())
	require.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
}

func TestVisitorServiceWalkInUnknownUnit(t *testing.T) {
	svc, _, _, _ := newVisitorFixture(t)

	_, err := svc.RegisterWalkIn(context.Background(), dto.WalkInRequest{
		Name:       "Courier",
		UnitNumber: "Z-999",
	}, guardClaims())
	require.ErrorIs(t, err, appErrors.ErrUnitNotFound)
}

func TestVisitorServiceCancel(t *testing.T) {
	svc, repo, _, now := newVisitorFixture(t)
	future := fixedNow.Add(48 * time.Hour)
	repo.visitors["visitor-1"] = &models.Visitor{
		ID: "visitor-1", SocietyID: "soc-1", UnitID: "unit-1", HostID: "resident-1",
		Status: models.VisitorStatusApproved, Name: "Ravi Kumar",
		ExpectedDate: &future, CreatedAt: fixedNow,
	}

	view, err := svc.Cancel(context.Background(), "visitor-1", residentClaims())
	require.NoError(t, err)
	require.Equal(t, models.VisitorStatusDenied, view.Status)
	require.Equal(t, "cancelled by host", view.DenyReason)

	// past visits are history, not cancellable
	past := fixedNow.Add(-48 * time.Hour)
	repo.visitors["visitor-2"] = &models.Visitor{
		ID: "visitor-2", SocietyID: "soc-1", UnitID: "unit-1", HostID: "resident-1",
		Status: models.VisitorStatusApproved, Name: "Asha Patel",
		ExpectedDate: &past, CreatedAt: past,
	}
	*now = fixedNow
	_, err = svc.Cancel(context.Background(), "visitor-2", residentClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestVisitorServiceActionInFlight(t *testing.T) {
	svc, repo, _, _ := newVisitorFixture(t)
	repo.visitors["visitor-1"] = &models.Visitor{
		ID: "visitor-1", SocietyID: "soc-1", UnitID: "unit-1", HostID: "resident-1",
		Status: models.VisitorStatusPending, Name: "Ravi Kumar", CreatedAt: fixedNow,
	}

	release, err := svc.acquire("visitor-1")
	require.NoError(t, err)
	defer release()

	_, err = svc.Approve(context.Background(), "visitor-1", residentClaims())
	require.ErrorIs(t, err, appErrors.ErrActionInFlight)
}

func TestVisitorServiceListScopesResidentToOwnVisits(t *testing.T) {
	svc, repo, _, _ := newVisitorFixture(t)

	_, err := svc.List(context.Background(), dto.VisitorQuery{}, residentClaims())
	require.NoError(t, err)
	require.Equal(t, "resident-1", repo.filter.HostID)

	_, err = svc.List(context.Background(), dto.VisitorQuery{UnitID: "unit-1"}, guardClaims())
	require.NoError(t, err)
	require.Empty(t, repo.filter.HostID)
	require.Equal(t, "unit-1", repo.filter.UnitID)
}

func TestVisitorServicePhoneMaskedForGuard(t *testing.T) {
	svc, _, _, _ := newVisitorFixture(t)

	approved, err := svc.PreApprove(context.Background(), dto.PreApproveVisitorRequest{
		Name:         "Ravi Kumar",
		Phone:        "9876543210",
		ExpectedDate: "2026-03-10",
	}, residentClaims())
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), approved.Visitor.ID, guardClaims())
	require.NoError(t, err)
	require.Equal(t, "********10", view.Phone)
}
