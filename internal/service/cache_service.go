package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/jobs"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type invalidationQueue interface {
	Submit(key string) (bool, error)
}

// CacheService wraps the dashboard cache with metrics, logging and deferred
// invalidation.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	queue      invalidationQueue
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// UseQueue routes Schedule calls through q. Without a queue Schedule
// invalidates inline.
func (s *CacheService) UseQueue(q invalidationQueue) {
	if s != nil {
		s.queue = q
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
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
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values matching pattern right away.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	s.metrics.RecordCacheInvalidation()
	return nil
}

// Schedule hands the pattern to the invalidation queue. Identical patterns
// waiting in the queue are coalesced. When the queue rejects the task the
// pattern is invalidated inline.
func (s *CacheService) Schedule(ctx context.Context, patterns ...string) {
	if !s.Enabled() {
		return
	}
	for _, pattern := range patterns {
		if s.queue != nil {
			_, err := s.queue.Submit(pattern)
			if err == nil {
				continue
			}
			s.logger.Warn("invalidation queue rejected pattern", zap.String("pattern", pattern), zap.Error(err))
		}
		_ = s.Invalidate(ctx, pattern)
	}
}

// Flush invalidates the patterns before returning so the caller's next read
// misses. A pattern that fails inline is handed to the queue for retry.
func (s *CacheService) Flush(ctx context.Context, patterns ...string) {
	if !s.Enabled() {
		return
	}
	for _, pattern := range patterns {
		if err := s.Invalidate(ctx, pattern); err == nil || s.queue == nil {
			continue
		}
		if _, err := s.queue.Submit(pattern); err != nil {
			s.logger.Error("cache pattern left stale", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

// InvalidationHandler adapts Invalidate to a jobs.Handler keyed by pattern.
func (s *CacheService) InvalidationHandler() jobs.Handler {
	return func(ctx context.Context, task jobs.Task) error {
		return s.Invalidate(ctx, task.Key)
	}
}

// ClassDashboardPatterns returns the cache patterns covering every dashboard
// derived from classID.
func ClassDashboardPatterns(classID string) []string {
	return []string{
		fmt.Sprintf("dash:class:%s:*", classID),
		fmt.Sprintf("dash:student:%s:*", classID),
	}
}

func invalidateClass(ctx context.Context, cache dashboardInvalidator, classID string) {
	if cache == nil || classID == "" {
		return
	}
	cache.Schedule(ctx, ClassDashboardPatterns(classID)...)
}

func flushClass(ctx context.Context, cache dashboardFlusher, classID string) {
	if cache == nil || classID == "" {
		return
	}
	cache.Flush(ctx, ClassDashboardPatterns(classID)...)
}
