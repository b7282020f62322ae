package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

func newExportFixture(t *testing.T) (*ExportService, *visitorRepoStub) {
	t.Helper()
	repo := newVisitorRepoStub()
	units := &unitDirectoryStub{units: map[string]*models.Unit{
		"unit-1": {ID: "unit-1", SocietyID: "soc-1", Number: "A-101"},
	}}
	return NewExportService(repo, units, nil, 0), repo
}

func managerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "manager-1", SocietyID: "soc-1", Role: models.RoleManager}
}

func TestGateRegisterCSV(t *testing.T) {
	svc, repo := newExportFixture(t)
	phone := "9876543210"
	in := fixedNow
	require.NoError(t, repo.Create(context.Background(), &models.Visitor{
		SocietyID:   "soc-1",
		UnitID:      "unit-1",
		HostID:      "resident-1",
		Type:        models.VisitorTypeExpected,
		Status:      models.VisitorStatusCheckedIn,
		Name:        "Ravi Kumar",
		Phone:       &phone,
		CheckedInAt: &in,
	}))

	payload, err := svc.GateRegisterCSV(context.Background(), managerClaims(), fixedNow)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("Name,Type,Status,Unit,Phone,Checked In,Checked Out")))
	require.Contains(t, string(payload), "Ravi Kumar,EXPECTED,CHECKED_IN,A-101")
	// office staff see the masked number, never the full one
	require.Contains(t, string(payload), "********10")
	require.NotContains(t, string(payload), phone)
	// query was bounded to the society and day
	require.Equal(t, "soc-1", repo.filter.SocietyID)
	require.NotNil(t, repo.filter.Date)
	require.Equal(t, defaultRegisterLimit, repo.filter.Limit)
}

func TestGateRegisterPDF(t *testing.T) {
	svc, repo := newExportFixture(t)
	require.NoError(t, repo.Create(context.Background(), &models.Visitor{
		SocietyID: "soc-1",
		UnitID:    "unit-1",
		HostID:    "resident-1",
		Type:      models.VisitorTypeWalkIn,
		Status:    models.VisitorStatusCheckedOut,
		Name:      "Courier",
	}))

	payload, err := svc.GateRegisterPDF(context.Background(), managerClaims(), fixedNow)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestGateRegisterForbiddenForGuard(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.GateRegisterCSV(context.Background(), guardClaims(), fixedNow)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
