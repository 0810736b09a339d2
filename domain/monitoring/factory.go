package monitoring

import (
	"errors"

	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/internal/log"
	"gorm.io/gorm"
)

var errDatabaseNotConfigured = errors.New("database not configured")

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	cache    Cache
	limiters LimiterFactory
}

func NewMonitoringControllerFactory(db *gorm.DB, logger *log.Logger, cache Cache, limiters LimiterFactory) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		db:       db,
		logger:   logger,
		cache:    cache,
		limiters: limiters,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.db, f.logger, f.cache, f.limiters)
}
