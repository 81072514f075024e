package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/export"
)

var historyHeaders = []string{"id", "created_at", "total", "no_attendance", "effective_total", "attended", "required", "percentage", "eligible", "bunkable", "needed", "message"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders stored calculations as CSV or PDF.
type ExportService struct {
	history *HistoryService
	csv     csvRenderer
	pdf     pdfRenderer
	maxRows int
	logger  *zap.Logger
}

// NewExportService constructs the service; nil renderers use the defaults.
func NewExportService(history *HistoryService, maxRows int, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if maxRows <= 0 {
		maxRows = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{history: history, csv: csv, pdf: pdf, maxRows: maxRows, logger: logger}
}

// Record renders one calculation as a field/value table.
func (s *ExportService) Record(ctx context.Context, id, format string) (*ExportFile, error) {
	f, err := parseExportFormat(format)
	if err != nil {
		return nil, err
	}
	record, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"field", "value"}}
	row := historyRow(record)
	for _, h := range historyHeaders {
		data.AddRow(h, row[h])
	}
	return s.render(f, data, "Attendance calculation", "calculation-"+record.ID)
}

// History renders the newest calculations matching filter, capped at the
// configured row limit.
func (s *ExportService) History(ctx context.Context, filter models.CalculationFilter, format string) (*ExportFile, error) {
	f, err := parseExportFormat(format)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: historyHeaders}
	pageSize := maxPageSize
	if s.maxRows < pageSize {
		pageSize = s.maxRows
	}
	for page := 1; len(data.Rows) < s.maxRows; page++ {
		records, pagination, err := s.history.List(ctx, models.CalculationFilter{Eligible: filter.Eligible, Page: page, PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		for i := range records {
			if len(data.Rows) == s.maxRows {
				break
			}
			data.Rows = append(data.Rows, historyRow(&records[i]))
		}
		if len(records) < pageSize || page*pageSize >= pagination.TotalCount {
			break
		}
	}

	s.logger.Debug("history export rendered", zap.String("format", string(f)), zap.Int("rows", len(data.Rows)))
	return s.render(f, data, "Attendance calculation history", "calculations")
}

func (s *ExportService) render(f export.Format, data export.Dataset, title, base string) (*ExportFile, error) {
	var (
		content []byte
		err     error
	)
	switch f {
	case export.FormatPDF:
		content, err = s.pdf.Render(data, title)
	default:
		content, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{Filename: f.Filename(base), ContentType: f.ContentType(), Content: content}, nil
}

func parseExportFormat(raw string) (export.Format, error) {
	f, err := export.ParseFormat(raw)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	return f, nil
}

func historyRow(r *models.CalculationRecord) map[string]string {
	return map[string]string{
		"id":              r.ID,
		"created_at":      r.CreatedAt.UTC().Format(time.RFC3339),
		"total":           strconv.FormatInt(r.Total, 10),
		"no_attendance":   strconv.FormatInt(r.NoAttendance, 10),
		"effective_total": strconv.FormatInt(r.EffectiveTotal, 10),
		"attended":        strconv.FormatInt(r.Attended, 10),
		"required":        strconv.FormatFloat(r.Required, 'f', -1, 64),
		"percentage":      strconv.FormatFloat(r.Percentage, 'f', 2, 64),
		"eligible":        strconv.FormatBool(r.Eligible),
		"bunkable":        optionalCount(r.Bunkable),
		"needed":          optionalCount(r.Needed),
		"message":         r.Message,
	}
}

func optionalCount(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
