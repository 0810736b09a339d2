package article

import (
	"strings"

	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/constants"
)

type CreateArticleRequest struct {
	Title string `json:"title" binding:"required,min=1,max=255"`
	Post  string `json:"post" binding:"required,min=1"`
}

type UpdateArticleRequest struct {
	Title *string `json:"title" binding:"omitempty,min=1,max=255"`
	Post  *string `json:"post" binding:"omitempty,min=1"`
}

type AuthorSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type ArticleResponse struct {
	ID        uint           `json:"id"`
	Title     string         `json:"title"`
	Post      string         `json:"post"`
	AuthorID  uint           `json:"author_id"`
	Author    *AuthorSummary `json:"author,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// ListFilter narrows article listings; zero values mean no filter.
type ListFilter struct {
	AuthorID uint
}

// ========================================
// Mappers
// ========================================

func ToArticleModel(req *CreateArticleRequest, authorID uint) *models.Article {
	if req == nil {
		return nil
	}
	return &models.Article{
		Title:    strings.TrimSpace(req.Title),
		Post:     req.Post,
		AuthorID: authorID,
	}
}

func ToArticleResponse(a *models.Article) ArticleResponse {
	if a == nil {
		return ArticleResponse{}
	}

	response := ArticleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Post:      a.Post,
		AuthorID:  a.AuthorID,
		CreatedAt: a.CreatedAt.Format(constants.RFC3339DateTimeFormat),
		UpdatedAt: a.UpdatedAt.Format(constants.RFC3339DateTimeFormat),
	}
	if a.Author != nil {
		response.Author = &AuthorSummary{
			ID:       a.Author.ID,
			Name:     a.Author.Name,
			Username: a.Author.Username,
		}
	}
	return response
}
