package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimiter_IsLimited_IsPerKey(t *testing.T) {
	ctx := context.Background()
	limiter := NewInMemoryRateLimiter(1, time.Second)

	limited, err := limiter.IsLimited(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, limited, "first request for client-a should not be limited")

	limited, err = limiter.IsLimited(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, limited, "second immediate request for client-a should be limited")

	limited, err = limiter.IsLimited(ctx, "client-b")
	require.NoError(t, err)
	assert.False(t, limited, "client-b has its own bucket")

	assert.Equal(t, 2, limiter.Size())
}

func TestInMemoryRateLimiter_EmptyKeySharesBucket(t *testing.T) {
	ctx := context.Background()
	limiter := NewInMemoryRateLimiter(1, time.Minute)

	limited, _ := limiter.IsLimited(ctx, "")
	assert.False(t, limited)

	limited, _ = limiter.IsLimited(ctx, "")
	assert.True(t, limited)
}

func TestNewRateLimiter_WithoutRedisUsesMemory(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{Requests: 5, Window: time.Minute})

	_, ok := limiter.(*InMemoryRateLimiter)
	assert.True(t, ok)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 5, requests)
	assert.Equal(t, time.Minute, window)
	assert.NoError(t, limiter.Close())
}
