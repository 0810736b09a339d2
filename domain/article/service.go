package article

import (
	"context"
	"strings"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/auth"
	"github.com/akeren/go-rest-starter/pkg/constants"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

type ArticleService interface {
	// CreateArticle stores an article authored by the authenticated user.
	CreateArticle(ctx context.Context, req *CreateArticleRequest) (*ArticleResponse, error)

	// GetArticle reads through the cache when one is configured.
	GetArticle(ctx context.Context, id uint) (*ArticleResponse, error)

	// ListArticles returns one page of articles and the total count.
	ListArticles(ctx context.Context, filter ListFilter, limit, offset int) ([]ArticleResponse, int64, error)

	// UpdateArticle is restricted to the author and administrators.
	UpdateArticle(ctx context.Context, id uint, req *UpdateArticleRequest) (*ArticleResponse, error)

	// DeleteArticle is restricted to the author and administrators.
	DeleteArticle(ctx context.Context, id uint) error
}

type articleService struct {
	logger     *log.Logger
	repository ArticleRepository
	cache      *articleCache
}

// NewArticleService accepts a nil cache, in which case every read goes to the repository.
func NewArticleService(logger *log.Logger, repository ArticleRepository, cache Cache, cacheTTL time.Duration) ArticleService {
	if cacheTTL <= 0 {
		cacheTTL = constants.DefaultCacheTTL
	}

	return &articleService{
		logger:     logger,
		repository: repository,
		cache:      newArticleCache(cache, cacheTTL, logger),
	}
}

func (s *articleService) CreateArticle(ctx context.Context, req *CreateArticleRequest) (*ArticleResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("CreateArticle received empty request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	authorID, _, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.repository.Create(ctx, ToArticleModel(req, authorID))
	if err != nil {
		logger.Error("Failed to create article", "error", err)
		return nil, err
	}

	logger.Info("Article created", "id", created.ID, "authorId", authorID)

	response := ToArticleResponse(created)
	return &response, nil
}

func (s *articleService) GetArticle(ctx context.Context, id uint) (*ArticleResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		logger.Error("GetArticle received invalid ID")
		return nil, apperrors.NewInvalidRequestError("invalid article ID", nil)
	}

	if cached, ok := s.cache.get(ctx, id); ok {
		logger.Debug("Article served from cache", "id", id)
		return cached, nil
	}

	a, err := s.repository.GetByID(ctx, id)
	if err != nil {
		logger.Warn("Failed to find article", "id", id, "error", err)
		return nil, err
	}

	response := ToArticleResponse(a)
	s.cache.put(ctx, &response)
	return &response, nil
}

func (s *articleService) ListArticles(ctx context.Context, filter ListFilter, limit, offset int) ([]ArticleResponse, int64, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if limit <= 0 || limit > constants.MaxPageLimit {
		limit = constants.DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	articles, total, err := s.repository.List(ctx, filter, limit, offset)
	if err != nil {
		logger.Error("Failed to list articles", "error", err)
		return nil, 0, err
	}

	responses := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		responses = append(responses, ToArticleResponse(a))
	}

	return responses, total, nil
}

func (s *articleService) UpdateArticle(ctx context.Context, id uint, req *UpdateArticleRequest) (*ArticleResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		return nil, apperrors.NewInvalidRequestError("invalid article ID", nil)
	}
	if req == nil || (req.Title == nil && req.Post == nil) {
		return nil, apperrors.NewInvalidRequestError("at least one field must be provided for update", nil)
	}

	a, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []string
	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
		fields = append(fields, "Title")
	}
	if req.Post != nil {
		a.Post = *req.Post
		fields = append(fields, "Post")
	}

	if err := s.repository.Update(ctx, a, fields); err != nil {
		logger.Error("Failed to update article", "id", id, "error", err)
		return nil, err
	}
	s.cache.invalidate(ctx, id)

	logger.Info("Article updated", "id", id, "fields", fields)

	response := ToArticleResponse(a)
	return &response, nil
}

func (s *articleService) DeleteArticle(ctx context.Context, id uint) error {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		return apperrors.NewInvalidRequestError("invalid article ID", nil)
	}

	if _, err := s.loadOwned(ctx, id); err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, id); err != nil {
		logger.Error("Failed to delete article", "id", id, "error", err)
		return err
	}
	s.cache.invalidate(ctx, id)

	logger.Info("Article deleted", "id", id)
	return nil
}

// loadOwned fetches the article and checks the caller may modify it.
func (s *articleService) loadOwned(ctx context.Context, id uint) (*models.Article, error) {
	userID, isAdmin, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.AuthorID != userID && !isAdmin {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Warn("Article modification rejected", "id", id, "authorId", a.AuthorID)
		return nil, NewNotAuthorError()
	}

	return a, nil
}

func actor(ctx context.Context) (uint, bool, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return 0, false, apperrors.NewUnauthorizedError("authentication required", err)
	}

	id, err := claims.UserID()
	if err != nil {
		return 0, false, apperrors.NewUnauthorizedError("invalid token subject", err)
	}

	return id, claims.HasRole(constants.RoleAdmin), nil
}
