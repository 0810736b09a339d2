package domain

import (
	"github.com/akeren/go-rest-starter/config"
	"github.com/akeren/go-rest-starter/domain/article"
	"github.com/akeren/go-rest-starter/domain/auth"
	"github.com/akeren/go-rest-starter/domain/monitoring"
	"github.com/akeren/go-rest-starter/domain/user"
	"github.com/akeren/go-rest-starter/pkg/factory"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	rs := appConfig.RouterService
	requests, window := rs.GetDefaultRateLimitConfig()

	cache := appConfig.Cache

	factories := factory.NewFactoryContainer(&factory.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Logger:   appConfig.Logger,
	}, cache)
	limiters := factories.RateLimiterFactory

	// A nil *TokenService must not become a non-nil interface.
	var tokens auth.TokenIssuer
	if appConfig.Tokens != nil {
		tokens = appConfig.Tokens
	}

	rs.MountController(monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, cache, limiters).CreateController())
	rs.MountController(auth.NewAuthServiceFactory(appConfig.DB, appConfig.Logger, tokens, limiters).CreateController())
	// Cached articles embed author data; user changes must drop them.
	var articleCache user.ArticleCache
	if invalidator := article.NewCacheInvalidator(cache, appConfig.Logger); invalidator != nil {
		articleCache = invalidator
	}

	rs.MountController(user.NewUserServiceFactory(appConfig.DB, appConfig.Logger, articleCache).CreateController())
	rs.MountController(article.NewArticleServiceFactory(appConfig.DB, appConfig.Logger, cache, appConfig.Config.CacheTTL, limiters).CreateController())
}
