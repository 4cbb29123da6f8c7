package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	FeeTotalsByStatus(ctx context.Context) ([]models.FeeStatusBreakdown, error)
	CollectionsByMode(ctx context.Context, filter models.FeeAnalyticsFilter) ([]models.FeeModeTotal, error)
	CollectionsByMonth(ctx context.Context, filter models.FeeAnalyticsFilter) ([]models.FeeMonthTotal, error)
}

// AnalyticsService provides read-optimised fee collection figures with cache integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Fees returns institute-wide collection figures. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Fees(ctx context.Context, filter models.FeeAnalyticsFilter) (*models.FeeAnalytics, bool, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	cacheKey := FeeAnalyticsCacheKey(filter)
	var cached models.FeeAnalytics
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	byStatus, err := s.repo.FeeTotalsByStatus(ctx)
	if err != nil {
		return nil, false, appErrors.Persistence(err, "failed to aggregate fee totals")
	}
	byMode, err := s.repo.CollectionsByMode(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Persistence(err, "failed to aggregate collections by mode")
	}
	byMonth, err := s.repo.CollectionsByMonth(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Persistence(err, "failed to aggregate collections by month")
	}

	result := &models.FeeAnalytics{
		TotalOffered:    decimal.Zero,
		TotalCollected:  decimal.Zero,
		TotalPending:    decimal.Zero,
		ByPaymentMode:   byMode,
		ByMonth:         byMonth,
		ByStudentStatus: byStatus,
		GeneratedAt:     s.now(),
	}
	for _, row := range byStatus {
		result.StudentCount += row.Students
		result.TotalOffered = result.TotalOffered.Add(row.Offered)
		result.TotalCollected = result.TotalCollected.Add(row.Collected)
	}
	if pending := result.TotalOffered.Sub(result.TotalCollected); pending.IsPositive() {
		result.TotalPending = pending
	}
	if result.TotalOffered.IsPositive() {
		result.CollectionRate = result.TotalCollected.Div(result.TotalOffered).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
		s.logger.Warn("cache fee analytics", zap.Error(err))
	}
	return result, false, nil
}
