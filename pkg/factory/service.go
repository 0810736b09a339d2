package factory

import (
	"context"
	"time"

	"github.com/akeren/go-rest-starter/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   ratelimit.Logger
}

// RateLimiterFactory builds limiters that share the application's backing store.
type RateLimiterFactory interface {
	CreateRateLimiter() ratelimit.RateLimiter
	// CreateScopedRateLimiter returns a limiter with its own budget, isolated from others under name.
	CreateScopedRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter
}

type DefaultRateLimiterFactory struct {
	config *ratelimit.RateLimitConfig
}

func NewDefaultRateLimiterFactory(requests int, window time.Duration, cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	return &DefaultRateLimiterFactory{
		config: &ratelimit.RateLimitConfig{
			Requests: requests,
			Window:   window,
			Redis:    redisClientOf(cache),
			Logger:   logger,
		},
	}
}

func redisClientOf(cache Cache) *redis.Client {
	if cache == nil {
		return nil
	}
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter() ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(f.config)
}

func (f *DefaultRateLimiterFactory) CreateScopedRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter {
	cfg := *f.config
	cfg.Requests = requests
	cfg.Window = window
	cfg.KeyPrefix = "ratelimit:" + name + ":"
	return ratelimit.NewRateLimiter(&cfg)
}

type FactoryContainer struct {
	RateLimiterFactory RateLimiterFactory
}

func NewFactoryContainer(rateLimitConfig *RateLimitConfig, cache Cache) *FactoryContainer {
	return &FactoryContainer{
		RateLimiterFactory: NewDefaultRateLimiterFactory(rateLimitConfig.Requests, rateLimitConfig.Window, cache, rateLimitConfig.Logger),
	}
}
