package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

// CalculationRecorder accepts successful calculations for persistence. Record
// must not block the caller.
type CalculationRecorder interface {
	Record(record *models.CalculationRecord)
}

// CalculatorService runs calculations for the HTTP layer.
type CalculatorService struct {
	calc            *Calculator
	metrics         *MetricsService
	recorder        CalculationRecorder
	defaultRequired decimal.Decimal
	logger          *zap.Logger
}

// NewCalculatorService constructs the service. calc defaults to the package
// calculator; recorder and metrics may be nil.
func NewCalculatorService(calc *Calculator, metrics *MetricsService, recorder CalculationRecorder, defaultRequired decimal.Decimal, logger *zap.Logger) *CalculatorService {
	if calc == nil {
		calc = defaultCalculator
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalculatorService{
		calc:            calc,
		metrics:         metrics,
		recorder:        recorder,
		defaultRequired: defaultRequired,
		logger:          logger,
	}
}

// Calculate decodes req and computes the result.
func (s *CalculatorService) Calculate(ctx context.Context, req dto.CalculateRequest, meta models.CalculationMeta) (*models.CalculationResult, error) {
	in, err := req.ToInput(s.defaultRequired)
	if err != nil {
		s.reject(err, meta)
		return nil, err
	}
	return s.Compute(ctx, in, meta)
}

// Compute evaluates already decoded input.
func (s *CalculatorService) Compute(ctx context.Context, in models.CalculationInput, meta models.CalculationMeta) (*models.CalculationResult, error) {
	result, err := s.calc.Compute(in)
	if err != nil {
		s.reject(err, meta)
		return nil, err
	}

	s.metrics.RecordCalculation(result.Outcome(), result.Percentage)
	if s.recorder != nil {
		s.recorder.Record(models.NewCalculationRecord(result, meta))
	}
	return result, nil
}

func (s *CalculatorService) reject(err error, meta models.CalculationMeta) {
	appErr := appErrors.FromError(err)
	s.metrics.RecordValidationFailure(appErr.Code)
	s.logger.Debug("calculation rejected",
		zap.String("code", appErr.Code),
		zap.String("request_id", meta.RequestID),
	)
}
