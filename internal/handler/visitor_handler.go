package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
	"github.com/reside-labs/societygate-api/pkg/response"
)

type visitorService interface {
	PreApprove(ctx context.Context, req dto.PreApproveVisitorRequest, actor *models.JWTClaims) (*dto.PreApprovedVisitor, error)
	RequestVisit(ctx context.Context, req dto.RequestVisitRequest, actor *models.JWTClaims) (*dto.VisitorView, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error)
	Deny(ctx context.Context, id string, req dto.DenyVisitorRequest, actor *models.JWTClaims) (*dto.VisitorView, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error)
	CheckIn(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error)
	CheckInByOTP(ctx context.Context, req dto.CheckInByOTPRequest, actor *models.JWTClaims) (*dto.VisitorView, error)
	CheckOut(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error)
	RegisterWalkIn(ctx context.Context, req dto.WalkInRequest, actor *models.JWTClaims) (*dto.VisitorView, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.VisitorView, error)
	List(ctx context.Context, query dto.VisitorQuery, actor *models.JWTClaims) ([]dto.VisitorView, error)
}

// VisitorHandler exposes the visitor lifecycle endpoints.
type VisitorHandler struct {
	service visitorService
}

// NewVisitorHandler constructs the handler.
func NewVisitorHandler(service visitorService) *VisitorHandler {
	return &VisitorHandler{service: service}
}

// PreApprove godoc
// @Summary Pre-approve an expected visitor and issue a gate code
// @Tags Visitors
// @Accept json
// @Produce json
// @Param payload body dto.PreApproveVisitorRequest true "Visitor details"
// @Success 201 {object} response.Envelope
// @Router /visitors/pre-approve [post]
func (h *VisitorHandler) PreApprove(c *gin.Context) {
	var req dto.PreApproveVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid visitor payload"))
		return
	}
	result, err := h.service.PreApprove(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Request godoc
// @Summary Record a visitor awaiting host approval
// @Tags Visitors
// @Accept json
// @Produce json
// @Param payload body dto.RequestVisitRequest true "Visit request"
// @Success 201 {object} response.Envelope
// @Router /visitors/request [post]
func (h *VisitorHandler) Request(c *gin.Context) {
	var req dto.RequestVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid visit request"))
		return
	}
	visitor, err := h.service.RequestVisit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, visitor, nil)
}

// List godoc
// @Summary List visitors scoped by role
// @Tags Visitors
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param date query string false "Expected date (YYYY-MM-DD)"
// @Param unit_id query string false "Unit filter (staff only)"
// @Success 200 {object} response.Envelope
// @Router /visitors [get]
func (h *VisitorHandler) List(c *gin.Context) {
	query := dto.VisitorQuery{UnitID: c.Query("unit_id")}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.VisitorStatus, 0, len(parts))
		for _, part := range parts {
			status := models.VisitorStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status filter"))
				return
			}
			statuses = append(statuses, status)
		}
		query.Status = statuses
	}
	if rawDate := c.Query("date"); rawDate != "" {
		date, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		query.Date = &date
	}
	if rawLimit := c.Query("limit"); rawLimit != "" {
		if limit, err := strconv.Atoi(rawLimit); err == nil {
			query.Limit = limit
		}
	}
	if rawOffset := c.Query("offset"); rawOffset != "" {
		if offset, err := strconv.Atoi(rawOffset); err == nil {
			query.Offset = offset
		}
	}

	visitors, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitors, nil)
}

// Get godoc
// @Summary Get visitor detail
// @Tags Visitors
// @Produce json
// @Param id path string true "Visitor ID"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id} [get]
func (h *VisitorHandler) Get(c *gin.Context) {
	visitor, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// Approve godoc
// @Summary Approve a pending visitor
// @Tags Visitors
// @Produce json
// @Param id path string true "Visitor ID"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id}/approve [post]
func (h *VisitorHandler) Approve(c *gin.Context) {
	visitor, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// Deny godoc
// @Summary Deny a pending visitor
// @Tags Visitors
// @Accept json
// @Produce json
// @Param id path string true "Visitor ID"
// @Param payload body dto.DenyVisitorRequest false "Denial reason"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id}/deny [post]
func (h *VisitorHandler) Deny(c *gin.Context) {
	var req dto.DenyVisitorRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deny payload"))
			return
		}
	}
	visitor, err := h.service.Deny(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// Cancel godoc
// @Summary Cancel an upcoming pre-approved visit
// @Tags Visitors
// @Produce json
// @Param id path string true "Visitor ID"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id}/cancel [post]
func (h *VisitorHandler) Cancel(c *gin.Context) {
	visitor, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// CheckIn godoc
// @Summary Check an approved visitor in at the gate
// @Tags Gate
// @Produce json
// @Param id path string true "Visitor ID"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id}/check-in [post]
func (h *VisitorHandler) CheckIn(c *gin.Context) {
	visitor, err := h.service.CheckIn(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// CheckInByOTP godoc
// @Summary Check a visitor in by gate code
// @Tags Gate
// @Accept json
// @Produce json
// @Param payload body dto.CheckInByOTPRequest true "Gate code"
// @Success 200 {object} response.Envelope
// @Router /visitors/check-in-by-code [post]
func (h *VisitorHandler) CheckInByOTP(c *gin.Context) {
	var req dto.CheckInByOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid gate code payload"))
		return
	}
	visitor, err := h.service.CheckInByOTP(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// CheckOut godoc
// @Summary Check a visitor out at the gate
// @Tags Gate
// @Produce json
// @Param id path string true "Visitor ID"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id}/check-out [post]
func (h *VisitorHandler) CheckOut(c *gin.Context) {
	visitor, err := h.service.CheckOut(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visitor, nil)
}

// WalkIn godoc
// @Summary Register an unannounced visitor at the gate
// @Tags Gate
// @Accept json
// @Produce json
// @Param payload body dto.WalkInRequest true "Walk-in details"
// @Success 201 {object} response.Envelope
// @Router /visitors/walk-in [post]
func (h *VisitorHandler) WalkIn(c *gin.Context) {
	var req dto.WalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid walk-in payload"))
		return
	}
	visitor, err := h.service.RegisterWalkIn(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, visitor, nil)
}
