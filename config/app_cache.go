package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	pkgredis "github.com/akeren/go-rest-starter/pkg/redis"
	"github.com/akeren/go-rest-starter/pkg/utils"
)

type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type CacheConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

func NewCacheConfig() *CacheConfig {
	db, err := strconv.Atoi(utils.GetEnvTrimmed("REDIS_DB"))
	if err != nil || db < 0 {
		db = 0
	}

	return &CacheConfig{
		Host:      os.Getenv("REDIS_HOST"),
		Port:      utils.GetEnvOrDefault("REDIS_PORT", "6379"),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        db,
		KeyPrefix: utils.GetEnvTrimmed("REDIS_KEY_PREFIX"),
	}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		Host:      cc.Host,
		Port:      cc.Port,
		Password:  cc.Password,
		DB:        cc.DB,
		KeyPrefix: cc.KeyPrefix,
	})
	if err != nil {
		logger.Error("Failed to create Cache (Redis)", "error", err)
		return nil, err
	}

	logger.Info("Cache (Redis) connected successfully")
	return cache, nil
}

// NewCacheOrNil returns nil when Redis is not configured or unreachable; callers then fall
// back to in-memory rate limiting and uncached reads.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Cache (Redis) is not configured; proceeding without external cache")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		return nil
	}
	return cache
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return err
	}

	logger.Info("Cache connection closed")
	return nil
}

var ErrCacheNotConfigured = errors.New("cache host is not configured")
