package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akeren/go-rest-starter/internal/interceptor"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/reqctx"
	"github.com/akeren/go-rest-starter/pkg/auth"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ClaimsKey holds the authenticated *auth.Claims in the gin context.
	ClaimsKey = "authClaims"
	// UserIDKey is the request context metadata key for the authenticated user.
	UserIDKey = "userId"
)

// requestContextMiddleware opens the request scope. The scope is released exactly once
// when the chain unwinds, including on panic and abort.
func (routerService *RouterService) requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reqctx.NormalizeRequestID(c.GetHeader(RequestIDHeader))
		if !ok {
			id = reqctx.NewRequestID()
		}

		ctx, release := reqctx.Open(c.Request.Context(), id, map[string]any{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
		})
		defer release()

		c.Request = c.Request.WithContext(ctx)
		c.Set(reqctx.RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

func (routerService *RouterService) traceRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(attribute.String("request.id", reqctx.RequestID(ctx)))
		}
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestLogger := routerService.logger.WithRequestContext(c.Request.Context())
		ctx := context.WithValue(c.Request.Context(), log.LoggerKeyForContext, requestLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// interceptorMiddleware emits exactly one completion record per request.
func (routerService *RouterService) interceptorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		call := interceptor.Start(ctx, routerService.logger, interceptor.Descriptor{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
		})

		defer func() {
			if p := recover(); p != nil {
				if call.Fail(fmt.Errorf("panic: %v", p), "statusCode", http.StatusInternalServerError, "route", c.FullPath()) {
					routerService.metrics.observeOutcome(interceptor.StatusFailure)
				}
				panic(p)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		outcome := interceptor.StatusSuccess
		if call.Complete(requestFailure(ctx, c), "statusCode", status, "route", c.FullPath(), "clientIp", c.ClientIP()) {
			if call.State() == interceptor.Failed {
				outcome = interceptor.StatusFailure
			}
			routerService.metrics.observeOutcome(outcome)
		}
	}
}

// requestFailure returns nil for a successful request, or the error that best describes the failure:
// the handler's own error first, then timeout, client cancellation and finally the HTTP status.
func requestFailure(entryCtx context.Context, c *gin.Context) error {
	if last := c.Errors.Last(); last != nil {
		return last.Err
	}

	// The timeout middleware swaps in a derived context, so check the final request context too.
	if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) || errors.Is(entryCtx.Err(), context.DeadlineExceeded) {
		return interceptor.ErrRequestTimeout
	}
	if errors.Is(entryCtx.Err(), context.Canceled) {
		return interceptor.ErrRequestCancelled
	}

	if status := c.Writer.Status(); status >= http.StatusBadRequest {
		return fmt.Errorf("HTTP %d %s", status, http.StatusText(status))
	}

	return nil
}

// RequireAuth validates the bearer token and exposes its claims to the handler.
func (routerService *RouterService) RequireAuth() MiddlewareFunc {
	return func(c *gin.Context) {
		if routerService.tokens == nil {
			abortUnauthorized(c, apperrors.NewUnauthorizedError("Authentication is not configured", nil))
			return
		}

		claims, err := routerService.tokens.Validate(c.GetHeader("Authorization"))
		if err != nil {
			message := "Invalid or missing access token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "Access token has expired"
			}
			abortUnauthorized(c, apperrors.NewUnauthorizedError(message, err))
			return
		}

		ctx := auth.ContextWithClaims(c.Request.Context(), claims)
		if userID, err := claims.UserID(); err == nil {
			_ = reqctx.Set(ctx, UserIDKey, userID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (routerService *RouterService) RequireRole(role string) MiddlewareFunc {
	return func(c *gin.Context) {
		claims, err := ClaimsFrom(c)
		if err != nil {
			abortUnauthorized(c, apperrors.NewUnauthorizedError("Authentication required", err))
			return
		}

		if !claims.HasRole(role) {
			appErr := apperrors.NewForbiddenError("You do not have permission to perform this action", nil)
			_ = c.Error(appErr)
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResult(http.StatusForbidden, appErr.Message, nil).ToJSON())
			return
		}

		c.Next()
	}
}

func ClaimsFrom(c *RequestContext) (*auth.Claims, error) {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims, nil
		}
	}
	return auth.ClaimsFromContext(c.Request.Context())
}

func abortUnauthorized(c *gin.Context, err *apperrors.AppError) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, UnauthorizedResult(err.Message).ToJSON())
}
