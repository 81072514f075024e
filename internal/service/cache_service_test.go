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

	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type stubCacheRepo struct {
	mu         sync.Mutex
	store      map[string][]byte
	ttls       map[string]time.Duration
	getErr     error
	setErr     error
	deleted    []string
	deleteErr  error
	setCounter int
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{store: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *stubCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	s.ttls[key] = ttl
	s.setCounter++
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func TestCacheServiceHitMissAndTTL(t *testing.T) {
	repo := newStubCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	hit, err := cache.Get(ctx, "calc:stats", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "calc:stats", map[string]int{"total": 3}, 0))
	assert.Equal(t, time.Minute, repo.ttls["calc:stats"])

	hit, err = cache.Get(ctx, "calc:stats", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, dest["total"])
	assert.Equal(t, 0.5, metrics.Snapshot().CacheHitRatio)

	require.NoError(t, cache.Invalidate(ctx, "calc:stats*"))
	hit, _ = cache.Get(ctx, "calc:stats", &dest)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newStubCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Set(ctx, "k", 1, 0))
	assert.Zero(t, repo.setCounter)
	hit, err := cache.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.NoError(t, nilCache.Invalidate(ctx, "k*"))
}

func TestCacheServicePropagatesBackendErrors(t *testing.T) {
	repo := newStubCacheRepo()
	repo.getErr = errors.New("redis down")
	repo.setErr = errors.New("redis down")
	repo.deleteErr = errors.New("redis down")
	cache := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()

	hit, err := cache.Get(ctx, "k", new(int))
	assert.False(t, hit)
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "k", 1, 0))
	assert.Error(t, cache.Invalidate(ctx, "k*"))
}
