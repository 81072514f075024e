package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/pkg/jobs"
)

const jobTypeRecordCalculation = "record_calculation"

type calculationWriter interface {
	Create(ctx context.Context, record *models.CalculationRecord) error
}

// HistoryRecorderConfig sizes the recorder's worker pool.
type HistoryRecorderConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// HistoryRecorder persists calculations in the background. A full buffer drops
// the record rather than slowing down /calculate.
type HistoryRecorder struct {
	repo    calculationWriter
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue
}

// NewHistoryRecorder builds a recorder; call Start before Record.
func NewHistoryRecorder(repo calculationWriter, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg HistoryRecorderConfig) *HistoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &HistoryRecorder{repo: repo, cache: cache, metrics: metrics, logger: logger}
	r.queue = jobs.NewQueue("calculation-history", r.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnGiveUp: func(job jobs.Job, err error) {
			metrics.RecordHistoryWrite(false)
		},
	})
	return r
}

// Start launches the workers.
func (r *HistoryRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop flushes buffered records and waits for the workers.
func (r *HistoryRecorder) Stop() {
	r.queue.Stop()
}

// Record queues record for persistence.
func (r *HistoryRecorder) Record(record *models.CalculationRecord) {
	if record == nil {
		return
	}
	job := jobs.Job{ID: record.RequestID, Type: jobTypeRecordCalculation, Payload: record}
	if err := r.queue.TryEnqueue(job); err != nil {
		r.metrics.RecordHistoryWrite(false)
		r.logger.Warn("calculation history dropped", zap.String("request_id", record.RequestID), zap.Error(err))
	}
}

func (r *HistoryRecorder) handle(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(*models.CalculationRecord)
	if !ok {
		r.logger.Error("unexpected history payload", zap.String("type", job.Type))
		return nil
	}
	if err := r.repo.Create(ctx, record); err != nil {
		return err
	}
	r.metrics.RecordHistoryWrite(true)
	if err := r.cache.Invalidate(ctx, statsCachePattern); err != nil {
		r.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
	return nil
}
