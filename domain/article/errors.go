package article

import (
	"errors"

	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

// Sentinel errors for the article domain.
var (
	ErrArticleNotFound = errors.New("article not found")
	ErrNotAuthor       = errors.New("only the author or an administrator may modify this article")
)

func NewArticleNotFoundError() *apperrors.AppError {
	return apperrors.NewNotFoundError("article not found", ErrArticleNotFound)
}

func NewNotAuthorError() *apperrors.AppError {
	return apperrors.NewForbiddenError(ErrNotAuthor.Error(), ErrNotAuthor)
}
