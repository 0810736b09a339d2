package config

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/auth"
	"github.com/akeren/go-rest-starter/pkg/constants"
	"github.com/akeren/go-rest-starter/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Tokens          *auth.TokenService
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	CacheTTL          time.Duration

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests: utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:   utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:    utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", router.DefaultTimeoutDuration),
		CacheTTL:          utils.GetEnvPositiveDuration("CACHE_TTL", constants.DefaultCacheTTL),

		JWTSecret: sanitizeEnv(utils.GetEnvTrimmed("JWT_SECRET")),
		JWTIssuer: utils.GetEnvTrimmedOrDefault("JWT_ISSUER", utils.OTelServiceName()),
		JWTTTL:    utils.GetEnvPositiveDuration("JWT_TTL", constants.DefaultTokenTTL),
	}
}

// NewTokenService fails when JWT_SECRET is unset outside development environments.
func (ac *AppConfig) NewTokenService(logger *log.Logger) (*auth.TokenService, error) {
	secret := ac.JWTSecret
	if secret == "" {
		if !IsDevelopmentEnv(GetAppEnv()) {
			return nil, fmt.Errorf("JWT_SECRET is required when %s=%q", AppEnvKey, GetAppEnv())
		}
		logger.Warn("JWT_SECRET not set; using an insecure development secret")
		secret = "insecure-development-secret"
	}

	return auth.NewTokenService(auth.Config{
		Secret: secret,
		Issuer: ac.JWTIssuer,
		TTL:    ac.JWTTTL,
	})
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabaseWithRetry(context.Background(), logger, nil)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()

	tokens, err := appConfig.NewTokenService(logger)
	if err != nil {
		CloseDatabase(db, logger)
		return nil, err
	}

	cache := NewCacheConfig().NewCacheOrNil(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
		Tokens:            tokens,
	})

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Tokens:          tokens,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}, nil
}
