package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
	"github.com/akeren/go-rest-starter/pkg/ratelimit"
	"github.com/akeren/go-rest-starter/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultHSTSMaxAge   = 31536000

	corsAllowHeaders = "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, " + RequestIDHeader
	corsAllowMethods = "POST, OPTIONS, GET, PUT, PATCH, DELETE"
)

// httpPolicy is read from the environment once, when the router is built.
type httpPolicy struct {
	hsts           bool
	hstsValue      string
	maxBodyBytes   int64
	allowedOrigins []string
}

func loadHTTPPolicy() httpPolicy {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))
	hstsValue := fmt.Sprintf("max-age=%d", utils.GetEnvPositiveInt("HSTS_MAX_AGE", defaultHSTSMaxAge))
	if utils.GetEnvBool("HSTS_INCLUDE_SUBDOMAINS", true) {
		hstsValue += "; includeSubDomains"
	}

	var origins []string
	for _, o := range strings.Split(utils.GetEnvTrimmed("CORS_ALLOWED_ORIGIN"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return httpPolicy{
		hsts:           utils.GetEnvBool("HSTS_ENABLED", appEnv == "production" || appEnv == "prod"),
		hstsValue:      hstsValue,
		maxBodyBytes:   int64(utils.GetEnvPositiveInt("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes)),
		allowedOrigins: origins,
	}
}

func (p httpPolicy) originAllowed(origin string) bool {
	return slices.Contains(p.allowedOrigins, "*") || slices.Contains(p.allowedOrigins, origin)
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	policy := routerService.policy
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		// TLS may terminate at a reverse proxy.
		secure := c.Request.TLS != nil || strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
		if policy.hsts && secure {
			h.Set("Strict-Transport-Security", policy.hstsValue)
		}
		c.Next()
	}
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.policy.maxBodyBytes
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				ErrorResult(http.StatusRequestEntityTooLarge, "Request payload too large", nil).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware answers preflight requests from allowed origins. Disallowed origins get no
// CORS headers and the browser blocks the response.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	policy := routerService.policy
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !policy.originAllowed(origin) {
			routerService.logger.WarnContext(c.Request.Context(), "CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// timeoutMiddleware bounds the request context. The chain runs on the request goroutine;
// mid-flight enforcement is left to the http.Server timeouts.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.middlewareConfig.TimeoutDuration
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			routerService.logger.WarnContext(ctx, "Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout,
				ErrorResult(apperrors.StatusRequestTimeout, "Request timeout", nil).ToJSON())
		}
	}
}

// limiterFor picks the limiter for a matched route: handler override, then controller
// override, then the global limiter. ok is false when no controller owns the route.
func (routerService *RouterService) limiterFor(route, method string) (limiter ratelimit.RateLimiter, ok bool) {
	key := routerService.keyForPathAndMethod(route, method)
	controller, found := routerService.handlerToControllerMap[key]
	if !found || controller == nil {
		return nil, false
	}

	if l, found := routerService.rateLimitOverrides[key]; found {
		return l, true
	}
	if l, found := routerService.rateLimitOverrides[controller.mountPoint]; found {
		return l, true
	}
	return routerService.rateLimiter, true
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		limiter, ok := routerService.limiterFor(c.FullPath(), c.Request.Method)
		if !ok {
			path := c.Request.URL.Path
			routerService.logger.WarnContext(ctx, "No controller mapping for request path", "path", path)
			c.AbortWithStatusJSON(http.StatusNotFound,
				NotFoundResult("There is no handler configured to handle any resource at the path "+path).ToJSON())
			return
		}
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(ctx, "ratelimit:"+clientIP)
		if err != nil {
			// Fail open on limiter infrastructure errors.
			routerService.logger.ErrorContext(ctx, "Rate limiter error", "error", err, "clientIp", clientIP)
			c.Next()
			return
		}
		if !limited {
			c.Next()
			return
		}

		retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
		routerService.logger.WarnContext(ctx, "Rate limit exceeded", "clientIp", clientIP)
		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: retryAfter,
		}).ToJSON())
	}
}
