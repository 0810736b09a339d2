package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	StatusOK                  = http.StatusOK
	StatusCreated             = http.StatusCreated
	StatusNoContent           = http.StatusNoContent
	StatusBadRequest          = http.StatusBadRequest
	StatusUnauthorized        = http.StatusUnauthorized
	StatusForbidden           = http.StatusForbidden
	StatusNotFound            = http.StatusNotFound
	StatusMethodNotAllowed    = http.StatusMethodNotAllowed
	StatusRequestTimeout      = http.StatusRequestTimeout
	StatusConflict            = http.StatusConflict
	StatusTooManyRequests     = http.StatusTooManyRequests
	StatusInternalServerError = http.StatusInternalServerError
)

const (
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeUnauthorized        = "UNAUTHORIZED"
	ErrorTypeForbidden           = "FORBIDDEN"
	ErrorTypeConflict            = "CONFLICT"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
	ErrorTypeNoContent           = "NO_CONTENT"
	ErrorTypeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrorTypeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrorTypeRequestTimeout      = "REQUEST_TIMEOUT"
	ErrorTypeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
)

// AppError is the error every layer returns to handlers. Message is safe to show to clients;
// Err is the underlying cause and is only logged.
type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Type + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewNotFoundError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, err)
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, err)
}

func NewForbiddenError(message string, err error) *AppError {
	return NewAppError(ErrorTypeForbidden, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

func NewNoContentError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNoContent, message, err)
}

func NewRequestTimeoutError(message string, err error) *AppError {
	return NewAppError(ErrorTypeRequestTimeout, message, err)
}

// IsErrorType reports whether err wraps an AppError of the given type.
func IsErrorType(err error, errType string) bool {
	return err != nil && GetErrorType(err) == errType
}

// GetErrorType returns the type of the outermost AppError in err's chain, ErrorTypeUnknown
// when there is none, and "" for a nil error.
func GetErrorType(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// messageHints maps substrings of driver and library errors to error types. Order matters.
var messageHints = []struct {
	needle  string
	errType string
}{
	{"not found", ErrorTypeNotFound},
	{"unauthorized", ErrorTypeUnauthorized},
	{"forbidden", ErrorTypeForbidden},
	{"conflict", ErrorTypeConflict},
	{"database", ErrorTypeDatabaseError},
	{"invalid request", ErrorTypeInvalidRequest},
	{"no content", ErrorTypeNoContent},
}

func DeduceErrorTypeFromErrorString(err error) string {
	if err == nil || err.Error() == "" {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range messageHints {
		if strings.Contains(msg, hint.needle) {
			return hint.errType
		}
	}
	return ErrorTypeUnknown
}

// IsDuplicateKeyError recognises unique-constraint violations from postgres and sqlite.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if DeduceErrorTypeFromErrorString(err) == ErrorTypeConflict {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
