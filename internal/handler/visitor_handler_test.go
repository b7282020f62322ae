package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/middleware"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type visitorServiceMock struct {
	preApproveResp *dto.PreApprovedVisitor
	view           *dto.VisitorView
	err            error
}

func (m *visitorServiceMock) PreApprove(ctx context.Context, req dto.PreApproveVisitorRequest, actor *models.JWTClaims) (*dto.PreApprovedVisitor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.preApproveResp, nil
}

func (m *visitorServiceMock) RequestVisit(ctx context.Context, req dto.RequestVisitRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) Deny(ctx context.Context, id string, req dto.DenyVisitorRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) CheckIn(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) CheckInByOTP(ctx context.Context, req dto.CheckInByOTPRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) CheckOut(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) RegisterWalkIn(ctx context.Context, req dto.WalkInRequest, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error) {
	return m.result()
}

func (m *visitorServiceMock) List(ctx context.Context, query dto.VisitorQuery, actor *models.JWTClaims) ([]dto.VisitorView, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.view == nil {
		return nil, nil
	}
	return []dto.VisitorView{*m.view}, nil
}

func (m *visitorServiceMock) result() (*dto.VisitorView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func newVisitorTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func TestVisitorHandlerPreApprove(t *testing.T) {
	mock := &visitorServiceMock{preApproveResp: &dto.PreApprovedVisitor{
		Visitor: &dto.VisitorView{ID: "vis-1", Status: models.VisitorStatusApproved},
		OTP:     "482915",
	}}
	handler := NewVisitorHandler(mock)
	body, _ := json.Marshal(dto.PreApproveVisitorRequest{Name: "Asha Mehta", ExpectedDate: "2026-03-11"})
	c, w := newVisitorTestContext(t, http.MethodPost, "/visitors/pre-approve", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "resident-1", Role: models.RoleResident})

	handler.PreApprove(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data dto.PreApprovedVisitor `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "482915", envelope.Data.OTP)
}

func TestVisitorHandlerPreApproveInvalidBody(t *testing.T) {
	handler := NewVisitorHandler(&visitorServiceMock{})
	c, w := newVisitorTestContext(t, http.MethodPost, "/visitors/pre-approve", []byte(`not json`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "resident-1", Role: models.RoleResident})

	handler.PreApprove(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisitorHandlerApproveConflict(t *testing.T) {
	handler := NewVisitorHandler(&visitorServiceMock{err: appErrors.ErrAlreadyProcessed})
	c, w := newVisitorTestContext(t, http.MethodPost, "/visitors/vis-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "vis-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "resident-1", Role: models.RoleResident})

	handler.Approve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVisitorHandlerCheckInByOTPExpired(t *testing.T) {
	handler := NewVisitorHandler(&visitorServiceMock{err: appErrors.ErrOTPExpired})
	body, _ := json.Marshal(dto.CheckInByOTPRequest{Code: "482915"})
	c, w := newVisitorTestContext(t, http.MethodPost, "/visitors/check-in-by-code", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "guard-1", Role: models.RoleGuard})

	handler.CheckInByOTP(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVisitorHandlerListRejectsUnknownStatus(t *testing.T) {
	handler := NewVisitorHandler(&visitorServiceMock{})
	c, w := newVisitorTestContext(t, http.MethodGet, "/visitors?status=LOITERING", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "guard-1", Role: models.RoleGuard})

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisitorHandlerDenyWithoutBody(t *testing.T) {
	mock := &visitorServiceMock{view: &dto.VisitorView{ID: "vis-1", Status: models.VisitorStatusDenied}}
	handler := NewVisitorHandler(mock)
	c, w := newVisitorTestContext(t, http.MethodPost, "/visitors/vis-1/deny", nil)
	c.Params = gin.Params{{Key: "id", Value: "vis-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "resident-1", Role: models.RoleResident})

	handler.Deny(c)
	require.Equal(t, http.StatusOK, w.Code)
}
