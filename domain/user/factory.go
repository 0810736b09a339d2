package user

import (
	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/internal/log"
	"gorm.io/gorm"
)

type UserServiceFactory interface {
	CreateService() UserService
	CreateController() *router.RESTController
}

type DefaultUserServiceFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	articles ArticleCache
}

func NewUserServiceFactory(db *gorm.DB, logger *log.Logger, articles ArticleCache) UserServiceFactory {
	return &DefaultUserServiceFactory{
		db:       db,
		logger:   logger,
		articles: articles,
	}
}

func (f *DefaultUserServiceFactory) CreateService() UserService {
	return NewUserService(f.logger, NewUserRepository(f.db), f.articles)
}

func (f *DefaultUserServiceFactory) CreateController() *router.RESTController {
	return newUserController(f.CreateService())
}
