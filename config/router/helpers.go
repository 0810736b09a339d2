package router

import (
	"net/http"
	"strconv"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/constants"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

// GetLogger returns the request-scoped logger injected by the router.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

// FromError maps a service error to its HTTP result without leaking internal details.
func FromError(err error) *ServiceResult {
	return &ServiceResult{
		StatusCode: apperrors.HTTPStatusCode(err),
		Data:       nil,
		Message:    apperrors.GetHumanReadableMessage(err),
		Err:        err,
	}
}

// BindJSON decodes and validates the body into req, returning a 400 result on failure.
func BindJSON(ctx *RequestContext, req any) *ServiceResult {
	err := ctx.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	GetLogger(ctx).Warn("Failed to bind request", "error", err)

	result := BadRequestResult("Invalid request body", nil)
	if validationErrors := apperrors.FormatValidationErrors(err, req); len(validationErrors) > 0 {
		result = BadRequestResult("Invalid request payload", validationErrors)
	}
	result.Err = apperrors.NewInvalidRequestError(result.Message, err)
	return result
}

// ParsePagination reads limit and offset query parameters, clamping them to sane bounds.
func ParsePagination(ctx *RequestContext) (limit, offset int) {
	limit = constants.DefaultPageLimit

	if l := ctx.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, constants.MaxPageLimit)
		}
	}
	if o := ctx.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Data:       data,
		Message:    message,
	}
}

func CreatedResult(data any, resourceName string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusCreated,
		Data:       data,
		Message:    resourceName + " created successfully",
	}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusTooManyRequests,
		Data:       data,
		Message:    "Too Many Requests",
	}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusBadRequest,
		Data:       payload,
		Message:    message,
	}
}

func UnauthorizedResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusUnauthorized,
		Data:       nil,
		Message:    message,
	}
}

func NotFoundResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusNotFound,
		Data:       nil,
		Message:    message,
	}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusInternalServerError,
		Data:       nil,
		Message:    message,
	}
}

func ForbiddenResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusForbidden,
		Data:       nil,
		Message:    message,
	}
}

func DeletedResult(resourceName string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Data:       nil,
		Message:    resourceName + " deleted successfully",
	}
}

func ConflictResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusConflict,
		Data:       nil,
		Message:    message,
	}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
	}
}

func ParseIDParam(ctx *RequestContext, paramName string) (uint, *ServiceResult) {
	logger := GetLogger(ctx)

	idParam := ctx.Param(paramName)
	id, err := strconv.ParseUint(idParam, 10, 32)

	if err != nil || id == 0 {
		logger.Warn("Invalid ID parameter", "param", paramName, "value", idParam)
		result := BadRequestResult("Invalid ID parameter", nil)
		result.Err = apperrors.NewInvalidRequestError("invalid id parameter "+paramName, err)
		return 0, result
	}

	return uint(id), nil
}
