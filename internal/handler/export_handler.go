package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
	"github.com/reside-labs/societygate-api/pkg/response"
)

type exportService interface {
	GateRegisterCSV(ctx context.Context, actor *models.JWTClaims, date time.Time) ([]byte, error)
	GateRegisterPDF(ctx context.Context, actor *models.JWTClaims, date time.Time) ([]byte, error)
}

// ExportHandler serves gate register downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// GateRegister godoc
// @Summary Download the gate register for one day
// @Tags Reports
// @Produce octet-stream
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /reports/gate-register [get]
func (h *ExportHandler) GateRegister(c *gin.Context) {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if rawDate := c.Query("date"); rawDate != "" {
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	actor := claimsFromContext(c)
	filename := fmt.Sprintf("gate-register-%s", date.Format("2006-01-02"))

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		payload, err := h.service.GateRegisterCSV(c.Request.Context(), actor, date)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.service.GateRegisterPDF(c.Request.Context(), actor, date)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
