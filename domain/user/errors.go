package user

import (
	"errors"

	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

// Sentinel errors for the user domain.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("username or email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

func NewUserNotFoundError() *apperrors.AppError {
	return apperrors.NewNotFoundError("user not found", ErrUserNotFound)
}

func NewDuplicateUserError(err error) *apperrors.AppError {
	return apperrors.NewConflictError("username or email already in use", errors.Join(ErrDuplicateUser, err))
}

func NewInvalidCredentialsError() *apperrors.AppError {
	return apperrors.NewUnauthorizedError("invalid username or password", ErrInvalidCredentials)
}

func NewAccountDisabledError() *apperrors.AppError {
	return apperrors.NewForbiddenError("account is disabled", ErrAccountDisabled)
}
