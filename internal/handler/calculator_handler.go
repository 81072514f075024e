package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/response"
)

// maxCalculateBody bounds the /calculate payload.
const maxCalculateBody = 1 << 16

var errTrailingData = errors.New("unexpected data after JSON object")

//go:embed static/index.html
var staticFiles embed.FS

type calculatorService interface {
	Calculate(ctx context.Context, req dto.CalculateRequest, meta models.CalculationMeta) (*models.CalculationResult, error)
}

// CalculatorHandler serves the calculator page and its JSON endpoint.
type CalculatorHandler struct {
	calculator calculatorService
	page       []byte
}

// NewCalculatorHandler constructs the handler.
func NewCalculatorHandler(calculator calculatorService) *CalculatorHandler {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return &CalculatorHandler{calculator: calculator, page: page}
}

// Index serves the calculator form.
func (h *CalculatorHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}

// Calculate godoc
// @Summary Compute attendance eligibility
// @Description Accepts numbers or numeric strings. Errors are returned as {"error": message}.
// @Tags Calculator
// @Accept json
// @Produce json
// @Param payload body dto.CalculateRequest true "Lecture counts and required percentage"
// @Success 200 {object} models.CalculationResult
// @Failure 400 {object} response.FlatError
// @Router /calculate [post]
func (h *CalculatorHandler) Calculate(c *gin.Context) {
	var req dto.CalculateRequest
	if err := decodeCalculateRequest(c, &req); err != nil {
		response.FlatErr(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, appErrors.ErrInvalidInput.Message))
		return
	}

	result, err := h.calculator.Calculate(c.Request.Context(), req, calculationMeta(c))
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		response.FlatErr(c, err)
		return
	}
	response.Flat(c, http.StatusOK, result)
}

// decodeCalculateRequest requires a single JSON object.
func decodeCalculateRequest(c *gin.Context, req *dto.CalculateRequest) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCalculateBody))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(req); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
