package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Logger is satisfied by *log.Logger; records carry the caller's request context.
type Logger interface {
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// RateLimiter decides whether the caller identified by key has exhausted its budget.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

// InMemoryRateLimiter keeps one token bucket per key. Suitable for a single instance.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*bucket
	ops      uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*bucket),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = "__empty__"
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.limiters[key]
	if !ok {
		rps := float64(r.requests) / r.window.Seconds()
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rps), r.requests)}
		r.limiters[key] = b
	}
	b.lastSeen = now

	// Sweep idle keys every 1024 calls.
	r.ops++
	if r.ops%1024 == 0 {
		cutoff := now.Add(-2 * r.window)
		for k, v := range r.limiters {
			if v.lastSeen.Before(cutoff) {
				delete(r.limiters, k)
			}
		}
	}

	return !b.limiter.AllowN(now, 1), nil
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// Size reports how many keys are currently tracked.
func (r *InMemoryRateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local expire = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

if redis.call('ZCARD', key) >= limit then
	return 1
end

redis.call('ZADD', key, now, member)
redis.call('EXPIRE', key, expire)
return 0
`

// RedisRateLimiter shares a sliding window across instances.
type RedisRateLimiter struct {
	client    *redis.Client
	script    *redis.Script
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
}

// NewRedisRateLimiter namespaces keys under keyPrefix; an empty prefix selects "ratelimit:".
func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, keyPrefix string, logger Logger) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisRateLimiter{
		client:    client,
		script:    redis.NewScript(slidingWindowScript),
		requests:  requests,
		window:    window,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	fullKey := key
	if !strings.HasPrefix(key, r.keyPrefix) {
		fullKey = r.keyPrefix + key
	}

	result, err := r.script.Run(ctx, r.client, []string{fullKey},
		time.Now().Unix(),
		int64(r.window.Seconds()),
		r.requests,
		int64((r.window * 2).Seconds()),
		uuid.NewString(),
	).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		// Limiting is a security control; surface the failure instead of allowing silently.
		return false, fmt.Errorf("rate limiter Redis error: %w", err)
	}

	return result == 1, nil
}

// The Redis client is owned by the application cache and closed there.
func (r *RedisRateLimiter) Close() error {
	return nil
}

type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	Redis     *redis.Client // nil selects the in-memory limiter
	KeyPrefix string        // Redis only; keeps route-specific windows apart
	Logger    Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.KeyPrefix, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
