package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/auth"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
	"github.com/akeren/go-rest-starter/pkg/ratelimit"
	"github.com/akeren/go-rest-starter/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	DefaultTimeoutDuration = 30 * time.Second

	// RequestIDHeader carries the correlation identifier in both directions.
	RequestIDHeader = "X-Request-Id"
)

type MiddlewareConfig struct {
	TimeoutDuration time.Duration
}

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

// TokenValidator verifies bearer tokens for RequireAuth.
type TokenValidator interface {
	Validate(raw string) (*auth.Claims, error)
}

type RouterService struct {
	engine            *gin.Engine
	server            *http.Server
	logger            *log.Logger
	rateLimiter       ratelimit.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
	redisClient       *redis.Client
	middlewareConfig  *MiddlewareConfig
	tokens            TokenValidator
	metrics           *metrics
	policy            httpPolicy

	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	// Tokens is optional; without it RequireAuth rejects every request.
	Tokens TokenValidator
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode, ok := os.LookupEnv("GIN_MODE"); ok && mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	ginRouter := gin.New()

	// ClientIP() only honours X-Forwarded-For from proxies listed in TRUSTED_PROXIES.
	trustedProxies := parseTrustedProxiesEnv(os.Getenv("TRUSTED_PROXIES"))
	if err := ginRouter.SetTrustedProxies(trustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = ginRouter.SetTrustedProxies(nil)
	} else if trustedProxies == nil {
		logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}

	var redisClient *redis.Client
	if cache != nil {
		if provider, ok := cache.(RedisClientProvider); ok {
			redisClient = provider.GetClient()
		}
	}

	requestTimeout := routerConfig.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultTimeoutDuration
	}

	rs := &RouterService{
		engine:            ginRouter,
		logger:            logger,
		rateLimitRequests: routerConfig.RateLimitRequests,
		rateLimitWindow:   routerConfig.RateLimitWindow,
		redisClient:       redisClient,
		middlewareConfig:  &MiddlewareConfig{TimeoutDuration: requestTimeout},
		policy:            loadHTTPPolicy(),
		tokens:            routerConfig.Tokens,

		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.initRateLimiting()

	// Recovery sits outside the request scope so a re-raised panic still becomes a 500
	// after the interceptor has recorded it.
	ginRouter.Use(gin.Recovery())
	ginRouter.Use(rs.requestContextMiddleware())

	if utils.IsTracingEnabled() {
		serviceName := utils.OTelServiceName()
		ginRouter.Use(otelgin.Middleware(serviceName))
		ginRouter.Use(rs.traceRequestIDMiddleware())
		logger.Info("Tracing middleware enabled")
	}

	rs.installMetrics()

	ginRouter.Use(rs.interceptorMiddleware())
	ginRouter.Use(rs.loggerInjectionMiddleware())

	// After the interceptor, before the rate limiter: /metrics is not owned by a controller.
	rs.mountMetricsEndpoint()

	ginRouter.Use(rs.securityHeadersMiddleware())
	ginRouter.Use(rs.maxBodySizeMiddleware())
	ginRouter.Use(rs.corsMiddleware())
	ginRouter.Use(rs.rateLimitMiddleware())
	ginRouter.Use(rs.timeoutMiddleware())

	ginRouter.HandleMethodNotAllowed = true
	ginRouter.RedirectTrailingSlash = true

	ginRouter.NoRoute(func(c *gin.Context) {
		logger.WithRequestContext(c.Request.Context()).Warn("Route not found")
		c.JSON(http.StatusNotFound, NotFoundResult("Route not found").ToJSON())
	})

	ginRouter.NoMethod(func(c *gin.Context) {
		logger.WithRequestContext(c.Request.Context()).Warn("Method not allowed")
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(apperrors.StatusMethodNotAllowed, "Method not allowed", nil).ToJSON())
	})

	rs.server = &http.Server{
		Addr:    ":8080", // overridden in RunHTTPServer
		Handler: ginRouter,

		// Gin's Context is not goroutine-safe, so time limits are enforced by the
		// server rather than by running handlers in a separate goroutine.
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized")
	return rs
}

// parseTrustedProxiesEnv returns nil (trust nobody) for an empty value and every address for "*".
func parseTrustedProxiesEnv(v string) []string {
	var proxies []string
	for _, p := range strings.Split(v, ",") {
		switch p = strings.TrimSpace(p); p {
		case "":
		case "*":
			return []string{"0.0.0.0/0", "::/0"}
		default:
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// initRateLimiting selects the global limiter: Redis when the cache answers a ping, otherwise
// an in-memory token bucket.
func (routerService *RouterService) initRateLimiting() {
	redisClient := routerService.redisClient
	if redisClient != nil {
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			routerService.logger.Warn("Redis unavailable for rate limiting; using in-memory limiter", "error", err)
			redisClient = nil
		}
	}

	routerService.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: routerService.rateLimitRequests,
		Window:   routerService.rateLimitWindow,
		Redis:    redisClient,
		Logger:   routerService.logger,
	})

	backend := "memory"
	if redisClient != nil {
		backend = "redis"
	}
	routerService.logger.Info("Rate limiting initialized",
		"backend", backend,
		"requests", routerService.rateLimitRequests,
		"window", routerService.rateLimitWindow.String())
}

func (routerService *RouterService) GetDefaultRateLimitConfig() (int, time.Duration) {
	return routerService.rateLimitRequests, routerService.rateLimitWindow
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

// GetLogger returns the service logger bound to the request's context.
func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithRequestContext(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	routerService.logger.Info("Mounting controller",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
	)

	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"handlers", controller.handlerCount,
	)
}

// RunHTTPServer blocks until the server stops. A graceful Shutdown is not an error.
func (routerService *RouterService) RunHTTPServer() error {
	routerService.server.Addr = ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	err := routerService.server.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	routerService.logger.Error("Failed to start HTTP server", "error", err)
	return fmt.Errorf("failed to start HTTP server: %w", err)
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
