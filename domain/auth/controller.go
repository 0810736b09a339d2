package auth

import (
	"time"

	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/pkg/ratelimit"
)

const (
	loginRequestsPerMinute    = 10
	registerRequestsPerMinute = 5
)

// LimiterFactory provides route-scoped limiters backed by the shared store.
type LimiterFactory interface {
	CreateScopedRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter
}

func NewAuthController(service AuthService, limiters LimiterFactory) *router.RESTController {
	return router.NewVersionedRESTController(
		"AuthController",
		"v1",
		"/auth",
		func(rs *router.RouterService, c *router.RESTController) {
			var loginLimiter, registerLimiter ratelimit.RateLimiter
			if limiters != nil {
				loginLimiter = limiters.CreateScopedRateLimiter("auth-login", loginRequestsPerMinute, time.Minute)
				registerLimiter = limiters.CreateScopedRateLimiter("auth-register", registerRequestsPerMinute, time.Minute)
			}

			rs.AddPostHandler(c, registerLimiter, "/register", registerHandler(service))
			rs.AddPostHandler(c, loginLimiter, "/login", loginHandler(service))
		},
	)
}

func registerHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req RegisterRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		response, err := service.Register(ctx.Request.Context(), &req)
		if err != nil {
			return router.FromError(err)
		}

		return router.CreatedResult(response, "Account")
	}
}

func loginHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req LoginRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		response, err := service.Login(ctx.Request.Context(), &req)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(response, "Login successful")
	}
}
