package errors

import "errors"

const genericClientMessage = "An unexpected error occurred"

var statusByType = map[string]int{
	ErrorTypeNotFound:          StatusNotFound,
	ErrorTypeInvalidRequest:    StatusBadRequest,
	ErrorTypeConflict:          StatusConflict,
	ErrorTypeUnauthorized:      StatusUnauthorized,
	ErrorTypeForbidden:         StatusForbidden,
	ErrorTypeTooManyRequests:   StatusTooManyRequests,
	ErrorTypeRateLimitExceeded: StatusTooManyRequests,
	ErrorTypeRequestTimeout:    StatusRequestTimeout,
	ErrorTypeMethodNotAllowed:  StatusMethodNotAllowed,
	ErrorTypeNoContent:         StatusNoContent,
}

// HTTPStatusCode maps err to a response status. Anything unclassified is a 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

// GetHumanReadableMessage returns the client-facing message of an AppError. Other errors
// get a generic message so driver details never reach the response.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return genericClientMessage
}
