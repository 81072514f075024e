package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/service"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/response"
)

type historyService interface {
	List(ctx context.Context, filter models.CalculationFilter) ([]models.CalculationRecord, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.CalculationRecord, error)
	Stats(ctx context.Context) (*models.CalculationStats, bool, error)
}

type exportService interface {
	Record(ctx context.Context, id, format string) (*service.ExportFile, error)
	History(ctx context.Context, filter models.CalculationFilter, format string) (*service.ExportFile, error)
}

// HistoryHandler exposes stored calculations to operators.
type HistoryHandler struct {
	history historyService
	exports exportService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(history historyService, exports exportService) *HistoryHandler {
	return &HistoryHandler{history: history, exports: exports}
}

// List godoc
// @Summary List stored calculations
// @Tags Calculations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size (1-100)"
// @Param eligible query bool false "Filter by eligibility"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calculations [get]
func (h *HistoryHandler) List(c *gin.Context) {
	filter, err := parseCalculationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, pagination, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get one calculation
// @Tags Calculations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Calculation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calculations/{id} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	record, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Stats godoc
// @Summary Aggregated calculation statistics
// @Tags Calculations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /calculations/stats [get]
func (h *HistoryHandler) Stats(c *gin.Context) {
	stats, hit, err := h.history.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cache_hit": hit})
}

// Export godoc
// @Summary Export calculation history
// @Tags Calculations
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param eligible query bool false "Filter by eligibility"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /calculations/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	filter, err := parseCalculationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.History(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// ExportOne godoc
// @Summary Export one calculation
// @Tags Calculations
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Calculation ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /calculations/{id}/export [get]
func (h *HistoryHandler) ExportOne(c *gin.Context) {
	file, err := h.exports.Record(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

func parseCalculationFilter(c *gin.Context) (models.CalculationFilter, error) {
	var filter models.CalculationFilter
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 100")
		}
		filter.PageSize = limit
	}
	if raw := c.Query("eligible"); raw != "" {
		eligible, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "eligible must be true or false")
		}
		filter.Eligible = &eligible
	}
	return service.NormalizeFilter(filter)
}
