package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/jobs"
)

// memoryCache stores JSON payloads and matches trailing-star patterns.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted   []string
	getErr    error
	deleteErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

func (m *memoryCache) deletedPatterns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

type stringBox struct {
	Value string
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out stringBox
	hit, err := svc.Get(ctx, "dash:class:c1:a1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "dash:class:c1:a1", &stringBox{Value: "cached"}, 0))
	hit, err = svc.Get(ctx, "dash:class:c1:a1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", out.Value)

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.CacheHits)
	assert.EqualValues(t, 1, snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
}

func TestCacheServiceGetError(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out stringBox
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", &stringBox{Value: "v"}, 0))
	assert.Empty(t, repo.entries)
	svc.Schedule(ctx, "dash:class:c1:*")
	assert.Empty(t, repo.deletedPatterns())

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	hit, err := nilSvc.Get(ctx, "k", &stringBox{})
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceScheduleInlineWithoutQueue(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "dash:class:c1:a1", &stringBox{Value: "x"}, 0))
	require.NoError(t, svc.Set(ctx, "dash:class:c2:a9", &stringBox{Value: "y"}, 0))

	svc.Schedule(ctx, ClassDashboardPatterns("c1")...)

	assert.Equal(t, ClassDashboardPatterns("c1"), repo.deletedPatterns())
	assert.NotContains(t, repo.entries, "dash:class:c1:a1")
	assert.Contains(t, repo.entries, "dash:class:c2:a9")
	assert.EqualValues(t, 2, metrics.Snapshot().CacheInvalidations)
}

type rejectingQueue struct{}

func (rejectingQueue) Submit(key string) (bool, error) {
	return false, errors.New("queue stopped")
}

// parkingQueue accepts keys without ever running them.
type parkingQueue struct {
	keys []string
}

func (q *parkingQueue) Submit(key string) (bool, error) {
	q.keys = append(q.keys, key)
	return true, nil
}

func TestCacheServiceFlushDeletesInline(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	parked := &parkingQueue{}
	svc.UseQueue(parked)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "dash:student:c1:s-a", &stringBox{Value: "x"}, 0))

	svc.Flush(ctx, ClassDashboardPatterns("c1")...)

	assert.Equal(t, ClassDashboardPatterns("c1"), repo.deletedPatterns())
	assert.NotContains(t, repo.entries, "dash:student:c1:s-a")
	assert.Empty(t, parked.keys)
}

func TestCacheServiceFlushQueuesFailedPatterns(t *testing.T) {
	repo := newMemoryCache()
	repo.deleteErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	parked := &parkingQueue{}
	svc.UseQueue(parked)

	svc.Flush(context.Background(), "dash:class:c1:*")
	assert.Equal(t, []string{"dash:class:c1:*"}, parked.keys)
}

func TestCacheServiceScheduleFallsBackWhenQueueRejects(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	svc.UseQueue(rejectingQueue{})

	svc.Schedule(context.Background(), "dash:student:c1:*")
	assert.Equal(t, []string{"dash:student:c1:*"}, repo.deletedPatterns())
}

func TestCacheServiceScheduleThroughQueue(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	queue := jobs.NewQueue("cache-invalidation", svc.InvalidationHandler(), jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.UseQueue(queue)

	svc.Schedule(context.Background(), ClassDashboardPatterns("c1")...)

	assert.Eventually(t, func() bool {
		return len(repo.deletedPatterns()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestClassDashboardPatterns(t *testing.T) {
	assert.Equal(t, []string{"dash:class:c1:*", "dash:student:c1:*"}, ClassDashboardPatterns("c1"))
}
