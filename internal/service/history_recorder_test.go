package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

func TestHistoryRecorderPersistsAndInvalidatesStats(t *testing.T) {
	repo := newFakeCalculationRepo()
	cacheRepo := newStubCacheRepo()
	require.NoError(t, cacheRepo.Set(context.Background(), statsCacheKey, models.CalculationStats{TotalCalculations: 9}, time.Minute))
	metrics := NewMetricsService()

	recorder := NewHistoryRecorder(repo, NewCacheService(cacheRepo, nil, 0, nil, true), metrics, nil, HistoryRecorderConfig{Workers: 2})
	recorder.Start(context.Background())
	recorder.Record(&models.CalculationRecord{RequestID: "r1"})
	recorder.Record(&models.CalculationRecord{RequestID: "r2"})
	recorder.Record(nil)
	recorder.Stop()

	assert.Equal(t, 2, repo.createdCount())
	assert.Contains(t, cacheRepo.deleted, statsCachePattern)
	_, cached := cacheRepo.store[statsCacheKey]
	assert.False(t, cached)
	assert.Equal(t, uint64(2), metrics.Snapshot().HistoryWrites)
}

func TestHistoryRecorderRetriesFailedWrites(t *testing.T) {
	repo := newFakeCalculationRepo()
	repo.createErrs = []error{errors.New("deadlock detected"), nil}
	metrics := NewMetricsService()

	recorder := NewHistoryRecorder(repo, nil, metrics, nil, HistoryRecorderConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	recorder.Start(context.Background())
	recorder.Record(&models.CalculationRecord{RequestID: "r1"})

	require.Eventually(t, func() bool { return repo.createdCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	recorder.Stop()
	assert.Equal(t, uint64(1), metrics.Snapshot().HistoryWrites)
	assert.Zero(t, metrics.Snapshot().HistoryWriteFailures)
}

func TestHistoryRecorderDropsWhenStopped(t *testing.T) {
	repo := newFakeCalculationRepo()
	metrics := NewMetricsService()
	recorder := NewHistoryRecorder(repo, nil, metrics, nil, HistoryRecorderConfig{})

	recorder.Record(&models.CalculationRecord{RequestID: "early"})
	assert.Zero(t, repo.createdCount())
	assert.Equal(t, uint64(1), metrics.Snapshot().HistoryWriteFailures)
}
