package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []*models.CalculationRecord
}

func (f *fakeRecorder) Record(record *models.CalculationRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
}

func decodeRequest(t *testing.T, body string) dto.CalculateRequest {
	t.Helper()
	var req dto.CalculateRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestCalculatorServiceRecordsSuccess(t *testing.T) {
	recorder := &fakeRecorder{}
	metrics := NewMetricsService()
	svc := NewCalculatorService(nil, metrics, recorder, decimal.NewFromInt(75), nil)

	meta := models.CalculationMeta{RequestID: "req-1", ClientIP: "10.0.0.1"}
	res, err := svc.Calculate(context.Background(), decodeRequest(t, `{"total":"100","attended":"80","no_attendance":"0"}`), meta)
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, 75.0, res.Required)

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, int64(100), rec.Total)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, "10.0.0.1", rec.ClientIP)
	assert.Equal(t, res.Message, rec.Message)
	assert.Equal(t, uint64(1), metrics.Snapshot().Calculations)
}

func TestCalculatorServiceUsesConfiguredDefault(t *testing.T) {
	svc := NewCalculatorService(nil, nil, nil, decimal.NewFromInt(90), nil)
	res, err := svc.Calculate(context.Background(), decodeRequest(t, `{"total":10,"attended":8,"no_attendance":0}`), models.CalculationMeta{})
	require.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, 90.0, res.Required)
	require.NotNil(t, res.Needed)
	assert.Equal(t, int64(10), *res.Needed)
}

func TestCalculatorServiceCountsRejections(t *testing.T) {
	recorder := &fakeRecorder{}
	metrics := NewMetricsService()
	svc := NewCalculatorService(nil, metrics, recorder, decimal.NewFromInt(75), nil)
	ctx := context.Background()

	_, err := svc.Calculate(ctx, decodeRequest(t, `{"total":"abc","attended":1,"no_attendance":0}`), models.CalculationMeta{})
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, err = svc.Calculate(ctx, decodeRequest(t, `{"total":10,"attended":11,"no_attendance":0}`), models.CalculationMeta{})
	assert.ErrorIs(t, err, appErrors.ErrAttendedExceedsTotal)

	assert.Empty(t, recorder.records)
	assert.Equal(t, uint64(2), metrics.Snapshot().ValidationFailures)
	assert.Zero(t, metrics.Snapshot().Calculations)
}
