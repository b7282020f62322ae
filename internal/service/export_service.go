package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
	"github.com/reside-labs/societygate-api/pkg/export"
)

const defaultRegisterLimit = 200

// ExportService renders the daily gate register as CSV or PDF for the
// society office.
type ExportService struct {
	visitors visitorStore
	units    unitDirectory
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	limit    int
}

// NewExportService constructs the service. A non-positive limit falls back
// to the default register page size.
func NewExportService(visitors visitorStore, units unitDirectory, logger *zap.Logger, limit int) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = defaultRegisterLimit
	}
	return &ExportService{
		visitors: visitors,
		units:    units,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		limit:    limit,
	}
}

// GateRegisterCSV renders the register for one day as CSV bytes.
func (s *ExportService) GateRegisterCSV(ctx context.Context, actor *models.JWTClaims, date time.Time) ([]byte, error) {
	dataset, err := s.gateRegister(ctx, actor, date)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// GateRegisterPDF renders the register for one day as PDF bytes.
func (s *ExportService) GateRegisterPDF(ctx context.Context, actor *models.JWTClaims, date time.Time) ([]byte, error) {
	dataset, err := s.gateRegister(ctx, actor, date)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Gate Register - %s", date.Format("02 Jan 2006"))
	payload, err := s.pdf.Render(*dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

func (s *ExportService) gateRegister(ctx context.Context, actor *models.JWTClaims, date time.Time) (*export.Dataset, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	visitors, err := s.visitors.List(ctx, models.VisitorFilter{
		SocietyID: actor.SocietyID,
		Date:      &date,
		Limit:     s.limit,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gate register")
	}

	headers := []string{"Name", "Type", "Status", "Unit", "Phone", "Checked In", "Checked Out"}
	rows := make([]map[string]string, 0, len(visitors))
	unitNumbers := make(map[string]string)
	for i := range visitors {
		v := &visitors[i]
		row := map[string]string{
			"Name":   v.Name,
			"Type":   string(v.Type),
			"Status": string(v.Status),
			"Unit":   s.unitNumber(ctx, v.UnitID, unitNumbers),
			// register readers are office staff, not the host
			"Phone": v.MaskedPhone(),
		}
		if v.CheckedInAt != nil {
			row["Checked In"] = v.CheckedInAt.Format("15:04")
		}
		if v.CheckedOutAt != nil {
			row["Checked Out"] = v.CheckedOutAt.Format("15:04")
		}
		rows = append(rows, row)
	}
	return &export.Dataset{Headers: headers, Rows: rows}, nil
}

// unitNumber resolves a unit's display number, memoised per export run. A
// failed lookup falls back to the raw id rather than failing the export.
func (s *ExportService) unitNumber(ctx context.Context, unitID string, memo map[string]string) string {
	if number, ok := memo[unitID]; ok {
		return number
	}
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		s.logger.Warn("failed to resolve unit for export", zap.String("unit_id", unitID), zap.Error(err))
		memo[unitID] = unitID
		return unitID
	}
	memo[unitID] = unit.Number
	return unit.Number
}
