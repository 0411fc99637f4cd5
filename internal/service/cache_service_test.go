package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMapCache()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var out []string
	assert.False(t, svc.Get(ctx, "k", &out))

	svc.Set(ctx, "k", []string{"a", "b"}, 0)
	assert.True(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, []string{"a", "b"}, out)

	svc.Invalidate(ctx, "k")
	assert.False(t, svc.Get(ctx, "k", &out))
}

func TestCacheServiceFailuresAreMisses(t *testing.T) {
	repo := newMapCache()
	repo.getErr = errStoreDown
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out []string
	assert.False(t, svc.Get(context.Background(), "k", &out))

	var disabled *CacheService
	assert.False(t, disabled.Enabled())
	assert.False(t, disabled.Get(context.Background(), "k", &out))
	disabled.Set(context.Background(), "k", out, time.Minute)
}
