package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
	"github.com/reside-labs/societygate-api/pkg/response"
)

type issueService interface {
	Create(ctx context.Context, req dto.CreateIssueRequest, actor *models.JWTClaims) (*models.Issue, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateIssueStatusRequest, actor *models.JWTClaims) (*models.Issue, error)
	List(ctx context.Context, filter models.IssueFilter, actor *models.JWTClaims) ([]models.Issue, error)
}

// IssueHandler exposes the maintenance complaint endpoints.
type IssueHandler struct {
	service issueService
}

// NewIssueHandler constructs the handler.
func NewIssueHandler(service issueService) *IssueHandler {
	return &IssueHandler{service: service}
}

// Create godoc
// @Summary Raise a maintenance complaint
// @Tags Issues
// @Accept json
// @Produce json
// @Param payload body dto.CreateIssueRequest true "Complaint details"
// @Success 201 {object} response.Envelope
// @Router /issues [post]
func (h *IssueHandler) Create(c *gin.Context) {
	var req dto.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid issue payload"))
		return
	}
	issue, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, issue, nil)
}

// List godoc
// @Summary List complaints scoped by role
// @Tags Issues
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Router /issues [get]
func (h *IssueHandler) List(c *gin.Context) {
	filter := models.IssueFilter{UnitID: c.Query("unit_id")}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.IssueStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.IssueStatus(part))
		}
		filter.Status = statuses
	}
	issues, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, nil)
}

// UpdateStatus godoc
// @Summary Move a complaint along its workflow
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID"
// @Param payload body dto.UpdateIssueStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /issues/{id}/status [patch]
func (h *IssueHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateIssueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid issue update"))
		return
	}
	issue, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue, nil)
}
