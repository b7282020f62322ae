package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/models"
)

func newVisitorRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func visitorRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "society_id", "unit_id", "host_id", "type", "status", "name", "phone", "purpose",
		"expected_date", "expected_time", "otp", "otp_expires_at", "deny_reason",
		"checked_in_by", "checked_out_by", "checked_in_at", "checked_out_at", "created_at",
	})
}

func TestVisitorRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newVisitorRepoMock(t)
	defer cleanup()

	repo := NewVisitorRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO visitors")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	visitor := &models.Visitor{
		SocietyID: "soc-1",
		UnitID:    "unit-1",
		HostID:    "resident-1",
		Type:      models.VisitorTypeExpected,
		Status:    models.VisitorStatusPending,
		Name:      "Asha Mehta",
	}
	require.NoError(t, repo.Create(context.Background(), visitor))
	require.NotEmpty(t, visitor.ID)

	rows := visitorRows().
		AddRow(visitor.ID, "soc-1", "unit-1", "resident-1", "EXPECTED", "PENDING", "Asha Mehta", nil, nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, society_id, unit_id, host_id")).
		WithArgs(visitor.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), visitor.ID)
	require.NoError(t, err)
	require.Equal(t, visitor.ID, found.ID)
	require.Equal(t, models.VisitorStatusPending, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorRepositoryFindApprovedByOTP(t *testing.T) {
	db, mock, cleanup := newVisitorRepoMock(t)
	defer cleanup()

	repo := NewVisitorRepository(db)
	code := "482915"
	expires := time.Now().Add(time.Hour)
	rows := visitorRows().
		AddRow("vis-1", "soc-1", "unit-1", "resident-1", "EXPECTED", "APPROVED", "Asha Mehta", nil, nil,
			nil, nil, code, expires, nil, nil, nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, society_id, unit_id, host_id")).
		WithArgs("soc-1", code, models.VisitorStatusApproved).
		WillReturnRows(rows)

	found, err := repo.FindApprovedByOTP(context.Background(), "soc-1", code)
	require.NoError(t, err)
	require.Equal(t, "vis-1", found.ID)
	require.NotNil(t, found.OTP)
	require.Equal(t, code, *found.OTP)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, society_id, unit_id, host_id")).
		WithArgs("soc-1", "000000", models.VisitorStatusApproved).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindApprovedByOTP(context.Background(), "soc-1", "000000")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestVisitorRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newVisitorRepoMock(t)
	defer cleanup()

	repo := NewVisitorRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE visitors SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.Transition(context.Background(), TransitionParams{
		ID:      "vis-1",
		From:    models.VisitorStatusApproved,
		To:      models.VisitorStatusCheckedIn,
		GuardID: "guard-1",
		At:      now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// another actor moved the visitor first
	mock.ExpectExec(regexp.QuoteMeta("UPDATE visitors SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Transition(context.Background(), TransitionParams{
		ID:   "vis-1",
		From: models.VisitorStatusPending,
		To:   models.VisitorStatusDenied,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestVisitorRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newVisitorRepoMock(t)
	defer cleanup()

	repo := NewVisitorRepository(db)
	rows := visitorRows().
		AddRow("vis-1", "soc-1", "unit-1", "resident-1", "EXPECTED", "APPROVED", "Asha Mehta", nil, nil,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, society_id, unit_id, host_id")).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.VisitorFilter{
		SocietyID: "soc-1",
		HostID:    "resident-1",
		Status:    []models.VisitorStatus{models.VisitorStatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "vis-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorRepositoryCountByStatusOnDate(t *testing.T) {
	db, mock, cleanup := newVisitorRepoMock(t)
	defer cleanup()

	repo := NewVisitorRepository(db)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("APPROVED", 3).
		AddRow("CHECKED_IN", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).
		WithArgs("soc-1", "2026-03-10").
		WillReturnRows(rows)

	counts, err := repo.CountByStatusOnDate(context.Background(), "soc-1", date)
	require.NoError(t, err)
	require.Equal(t, 3, counts[models.VisitorStatusApproved])
	require.Equal(t, 2, counts[models.VisitorStatusCheckedIn])
	require.NoError(t, mock.ExpectationsWereMet())
}
