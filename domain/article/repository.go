package article

import (
	"context"
	"errors"

	"github.com/akeren/go-rest-starter/internal/models"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
	"gorm.io/gorm"
)

type ArticleRepository interface {
	// Create persists a new article.
	Create(ctx context.Context, a *models.Article) (*models.Article, error)
	// GetByID loads the article and its author. A missing article is a not-found error.
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	// List returns one page of articles, newest first, and the total matching count.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*models.Article, int64, error)
	// Update writes only the named fields of a.
	Update(ctx context.Context, a *models.Article, fields []string) error
	// Delete removes the article by ID.
	Delete(ctx context.Context, id uint) error
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (ar *articleRepository) Create(ctx context.Context, a *models.Article) (*models.Article, error) {
	if err := ar.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to create article", err)
	}

	return a, nil
}

func (ar *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var a models.Article

	if err := ar.db.WithContext(ctx).Preload("Author").First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewArticleNotFoundError()
		}
		return nil, apperrors.NewDatabaseError("failed to fetch article", err)
	}

	return &a, nil
}

func (ar *articleRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*models.Article, int64, error) {
	var (
		articles []*models.Article
		total    int64
	)

	query := ar.db.WithContext(ctx).Model(&models.Article{})
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewDatabaseError("unable to count articles", err)
	}

	if err := query.Preload("Author").Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&articles).Error; err != nil {
		return nil, 0, apperrors.NewDatabaseError("unable to fetch articles", err)
	}

	return articles, total, nil
}

func (ar *articleRepository) Update(ctx context.Context, a *models.Article, fields []string) error {
	if len(fields) == 0 {
		return apperrors.NewInvalidRequestError("no fields to update", nil)
	}

	result := ar.db.WithContext(ctx).Model(a).Select(fields).Updates(a)
	if result.Error != nil {
		return apperrors.NewDatabaseError("unable to update article", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewArticleNotFoundError()
	}

	return nil
}

func (ar *articleRepository) Delete(ctx context.Context, id uint) error {
	result := ar.db.WithContext(ctx).Delete(&models.Article{}, id)

	if result.Error != nil {
		return apperrors.NewDatabaseError("unable to delete article", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewArticleNotFoundError()
	}

	return nil
}
