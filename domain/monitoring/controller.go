package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/ratelimit"
	"gorm.io/gorm"
)

const (
	monitoringRequestsPerMinute = 10
	healthCheckTimeout          = 2 * time.Second
)

type Cache interface {
	Ping(ctx context.Context) error
}

// LimiterFactory provides route-scoped limiters backed by the shared store.
type LimiterFactory interface {
	CreateScopedRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter
}

type HealthStatus struct {
	Database int    `json:"database"` // 1 = healthy, 0 = unhealthy
	Cache    int    `json:"cache"`    // 1 = healthy, 0 = unhealthy/not configured
	Uptime   int    `json:"uptime"`   // seconds
	Status   string `json:"status"`
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	startTime time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache, limiters LimiterFactory) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			var monitoringRateLimiter ratelimit.RateLimiter
			if limiters != nil {
				monitoringRateLimiter = limiters.CreateScopedRateLimiter("monitoring", monitoringRequestsPerMinute, time.Minute)
			}

			routerService.AddGetHandler(controller, monitoringRateLimiter, "", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.monitor(c)
			})

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(c)
			})
		},
	)
}

func (ctrl *MonitoringController) healthCheck(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)
	logger.Debug("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	statusCode := http.StatusOK
	if healthStatus.Database == 0 {
		statusCode = http.StatusServiceUnavailable
	}

	return &router.ServiceResult{
		StatusCode: statusCode,
		Data:       healthStatus,
		Message:    "Health check completed",
	}
}

func (ctrl *MonitoringController) monitor(c *router.RequestContext) *router.ServiceResult {
	return router.OKResult("Monitoring endpoint is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
		Status: "ok",
	}

	checkDatabaseConnectivity(ctx, ctrl, &status, logger)
	checkCacheConnectivity(ctx, ctrl, &status, logger)

	if status.Database == 0 {
		status.Status = "degraded"
	}

	return status
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache == nil {
		status.Cache = 0
		logger.Debug("Cache not configured, cache health check skipped")
		return
	}

	if err := ctrl.cache.Ping(ctx); err != nil {
		status.Cache = 0
		logger.Error("Cache health check failed", "error", err)
		return
	}

	status.Cache = 1
}

func checkDatabaseConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if err := ctrl.checkDatabase(ctx); err != nil {
		status.Database = 0
		logger.Error("Database health check failed", "error", err)
		return
	}

	status.Database = 1
}

func (ctrl *MonitoringController) checkDatabase(ctx context.Context) error {
	if ctrl.db == nil {
		return errDatabaseNotConfigured
	}

	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
