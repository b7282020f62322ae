package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
	"github.com/reside-labs/societygate-api/pkg/response"
)

type societyService interface {
	Get(ctx context.Context, id string) (*models.Society, error)
	Blocks(ctx context.Context, societyID string) ([]models.BlockSummary, error)
	Units(ctx context.Context, blockID string) ([]models.Unit, error)
	Dashboard(ctx context.Context, societyID string) (*dto.DashboardSummary, error)
}

// SocietyHandler exposes directory and dashboard endpoints. Everything is
// scoped to the caller's own society from the token, never a path param.
type SocietyHandler struct {
	service societyService
}

// NewSocietyHandler constructs the handler.
func NewSocietyHandler(service societyService) *SocietyHandler {
	return &SocietyHandler{service: service}
}

// Get godoc
// @Summary Get the caller's society
// @Tags Society
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /society [get]
func (h *SocietyHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	society, err := h.service.Get(c.Request.Context(), claims.SocietyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, society, nil)
}

// Blocks godoc
// @Summary List the society's blocks with unit counts
// @Tags Society
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /society/blocks [get]
func (h *SocietyHandler) Blocks(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	blocks, err := h.service.Blocks(c.Request.Context(), claims.SocietyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// Units godoc
// @Summary List the units of one block
// @Tags Society
// @Produce json
// @Param id path string true "Block ID"
// @Success 200 {object} response.Envelope
// @Router /society/blocks/{id}/units [get]
func (h *SocietyHandler) Units(c *gin.Context) {
	units, err := h.service.Units(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// Dashboard godoc
// @Summary Manager dashboard summary
// @Tags Society
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /society/dashboard [get]
func (h *SocietyHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.Dashboard(c.Request.Context(), claims.SocietyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
