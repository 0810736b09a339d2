package article

import (
	"time"

	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/internal/log"
	"gorm.io/gorm"
)

type ArticleServiceFactory interface {
	CreateService() ArticleService
	CreateController() *router.RESTController
}

type DefaultArticleServiceFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	cache    Cache
	cacheTTL time.Duration
	limiters LimiterFactory
}

func NewArticleServiceFactory(db *gorm.DB, logger *log.Logger, cache Cache, cacheTTL time.Duration, limiters LimiterFactory) ArticleServiceFactory {
	return &DefaultArticleServiceFactory{
		db:       db,
		logger:   logger,
		cache:    cache,
		cacheTTL: cacheTTL,
		limiters: limiters,
	}
}

func (f *DefaultArticleServiceFactory) CreateService() ArticleService {
	return NewArticleService(f.logger, NewArticleRepository(f.db), f.cache, f.cacheTTL)
}

func (f *DefaultArticleServiceFactory) CreateController() *router.RESTController {
	return NewArticleController(f.CreateService(), f.limiters)
}
