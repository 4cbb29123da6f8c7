package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// FeeAnalyticsCachePattern matches every cached fee analytics payload.
const FeeAnalyticsCachePattern = "analytics:fees*"

// FeeAnalyticsCacheKey derives the cache key for one analytics window. Bounds are encoded as unix seconds
// so equal instants in different zones share an entry.
func FeeAnalyticsCacheKey(filter models.FeeAnalyticsFilter) string {
	var b strings.Builder
	b.WriteString("analytics:fees")
	for _, bound := range []*time.Time{filter.From, filter.To} {
		b.WriteByte(':')
		if bound != nil {
			b.WriteString(strconv.FormatInt(bound.UTC().Unix(), 10))
		}
	}
	return b.String()
}

// CacheRepository abstracts the Redis store behind the analytics cache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches read models derived from the ledger. A nil or disabled service behaves as a cache
// that always misses, so ledger writes never depend on Redis being up.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports a hit. Misses and Redis failures both return false; only the latter
// carries an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. A non-positive ttl uses the configured analytics TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	return err
}

// Invalidate removes every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.DeleteByPattern(ctx, pattern)
}

// InvalidateFeeAnalytics drops cached analytics after a balance or enrollment change. Failure only costs
// staleness until the TTL runs out, so it is logged and not returned.
func (s *CacheService) InvalidateFeeAnalytics(ctx context.Context) {
	if err := s.Invalidate(ctx, FeeAnalyticsCachePattern); err != nil {
		s.logger.Warn("failed to invalidate fee analytics cache", zap.Error(err))
	}
}
