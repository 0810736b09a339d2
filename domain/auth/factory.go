package auth

import (
	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/domain/user"
	"github.com/akeren/go-rest-starter/internal/log"
	"gorm.io/gorm"
)

type AuthServiceFactory interface {
	CreateService() AuthService
	CreateController() *router.RESTController
}

type DefaultAuthServiceFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	tokens   TokenIssuer
	limiters LimiterFactory
}

func NewAuthServiceFactory(db *gorm.DB, logger *log.Logger, tokens TokenIssuer, limiters LimiterFactory) AuthServiceFactory {
	return &DefaultAuthServiceFactory{
		db:       db,
		logger:   logger,
		tokens:   tokens,
		limiters: limiters,
	}
}

func (f *DefaultAuthServiceFactory) CreateService() AuthService {
	users := user.NewUserServiceFactory(f.db, f.logger, nil).CreateService()
	return NewAuthService(f.logger, users, f.tokens)
}

func (f *DefaultAuthServiceFactory) CreateController() *router.RESTController {
	return NewAuthController(f.CreateService(), f.limiters)
}
