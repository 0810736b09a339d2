package factory

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/go-rest-starter/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestFactoryContainer_WithoutCacheBuildsInMemoryLimiters(t *testing.T) {
	container := NewFactoryContainer(&RateLimitConfig{Requests: 10, Window: time.Minute}, nil)

	limiter := container.RateLimiterFactory.CreateRateLimiter()
	_, ok := limiter.(*ratelimit.InMemoryRateLimiter)
	assert.True(t, ok)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 10, requests)
	assert.Equal(t, time.Minute, window)
}

func TestCreateScopedRateLimiter_HasIndependentBudget(t *testing.T) {
	f := NewDefaultRateLimiterFactory(100, time.Minute, nil, nil)

	login := f.CreateScopedRateLimiter("login", 1, time.Minute)
	requests, _ := login.GetLimitDetails()
	assert.Equal(t, 1, requests)

	ctx := context.Background()
	limited, _ := login.IsLimited(ctx, "10.0.0.1")
	assert.False(t, limited)
	limited, _ = login.IsLimited(ctx, "10.0.0.1")
	assert.True(t, limited)

	shared := f.CreateRateLimiter()
	limited, _ = shared.IsLimited(ctx, "10.0.0.1")
	assert.False(t, limited)
}
