package article

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/circuitbreaker"
)

// Cache is the subset of the application cache used for article reads.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// articleCache is a read-through cache in front of the repository. Cache failures are
// logged and treated as misses; they never fail the request.
type articleCache struct {
	cache   Cache
	breaker circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  *log.Logger
}

func newArticleCache(cache Cache, ttl time.Duration, logger *log.Logger) *articleCache {
	if cache == nil {
		return nil
	}

	return &articleCache{
		cache: cache,
		breaker: circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 2,
		}),
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(id uint) string {
	return "article:" + strconv.FormatUint(uint64(id), 10)
}

func (c *articleCache) get(ctx context.Context, id uint) (*ArticleResponse, bool) {
	if c == nil {
		return nil, false
	}

	var raw string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var getErr error
		raw, getErr = c.cache.Get(ctx, cacheKey(id))
		return getErr
	})
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, c.logger).Warn("Article cache read failed", "id", id, "error", err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var response ArticleResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		log.GetLoggerInstanceFromContext(ctx, c.logger).Warn("Discarding malformed cached article", "id", id, "error", err)
		c.invalidate(ctx, id)
		return nil, false
	}

	return &response, true
}

func (c *articleCache) put(ctx context.Context, response *ArticleResponse) {
	if c == nil || response == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, cacheKey(response.ID), string(payload), c.ttl)
	}); err != nil {
		log.GetLoggerInstanceFromContext(ctx, c.logger).Warn("Article cache write failed", "id", response.ID, "error", err)
	}
}

func (c *articleCache) invalidate(ctx context.Context, id uint) {
	if c == nil {
		return
	}

	if err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, cacheKey(id))
	}); err != nil {
		log.GetLoggerInstanceFromContext(ctx, c.logger).Warn("Article cache invalidation failed", "id", id, "error", err)
	}
}

// CacheInvalidator drops cached articles on behalf of other domains, such as an author
// being renamed or deleted. A nil *CacheInvalidator is a no-op.
type CacheInvalidator struct {
	cache *articleCache
}

func NewCacheInvalidator(cache Cache, logger *log.Logger) *CacheInvalidator {
	if cache == nil {
		return nil
	}
	return &CacheInvalidator{cache: newArticleCache(cache, 0, logger)}
}

func (i *CacheInvalidator) InvalidateArticles(ctx context.Context, ids []uint) {
	if i == nil {
		return
	}
	for _, id := range ids {
		i.cache.invalidate(ctx, id)
	}
}
