package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

const (
	statsCacheKey     = "calc:stats"
	statsCachePattern = "calc:stats*"

	defaultPageSize = 20
	maxPageSize     = 100
)

type calculationReader interface {
	GetByID(ctx context.Context, id string) (*models.CalculationRecord, error)
	List(ctx context.Context, filter models.CalculationFilter) ([]models.CalculationRecord, int, error)
	Stats(ctx context.Context) (*models.CalculationStats, error)
}

// HistoryService exposes stored calculations.
type HistoryService struct {
	repo     calculationReader
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewHistoryService constructs the service. cache may be nil.
func NewHistoryService(repo calculationReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// NormalizeFilter applies paging defaults and rejects out of range values.
func NormalizeFilter(filter models.CalculationFilter) (models.CalculationFilter, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.Page < 1 {
		return filter, appErrors.Clone(appErrors.ErrValidation, "page must be at least 1")
	}
	if filter.PageSize < 1 || filter.PageSize > maxPageSize {
		return filter, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 100")
	}
	return filter, nil
}

// List returns one page of history, newest first.
func (s *HistoryService) List(ctx context.Context, filter models.CalculationFilter) ([]models.CalculationRecord, *models.Pagination, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, nil, err
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calculations")
	}
	return records, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single calculation.
func (s *HistoryService) Get(ctx context.Context, id string) (*models.CalculationRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calculation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calculation")
	}
	return record, nil
}

// Stats aggregates the history. The boolean reports a cache hit.
func (s *HistoryService) Stats(ctx context.Context) (*models.CalculationStats, bool, error) {
	var cached models.CalculationStats
	if hit, err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate calculations")
	}
	stats.GeneratedAt = s.now().UTC()

	if err := s.cache.Set(ctx, statsCacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Debug("stats not cached", zap.Error(err))
	}
	return stats, false, nil
}
