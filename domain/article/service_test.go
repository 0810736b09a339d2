package article

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/auth"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	failing bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

var errCacheDown = errors.New("cache: connection refused")

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return "", errCacheDown
	}
	return c.entries[key], nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func newTestService(t *testing.T, cache Cache) (*MockArticleRepository, ArticleService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockArticleRepository(ctrl)
	logger := log.NewLogger(log.Options{Output: io.Discard})
	return mockRepo, NewArticleService(logger, mockRepo, cache, time.Minute)
}

func actingAs(id string, roles ...string) context.Context {
	claims := &auth.Claims{Username: "actor", Roles: roles}
	claims.Subject = id
	return auth.ContextWithClaims(context.Background(), claims)
}

func strPtr(s string) *string { return &s }

func sampleArticle() *models.Article {
	return &models.Article{
		ID:        10,
		Title:     "Hello",
		Post:      "World",
		AuthorID:  7,
		CreatedAt: time.Now(),
		Author:    &models.User{ID: 7, Name: "Jane", Username: "jdoe"},
	}
}

func TestCreateArticle_UsesAuthenticatedAuthor(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *models.Article) (*models.Article, error) {
			assert.Equal(t, uint(7), a.AuthorID)
			assert.Equal(t, "Hello", a.Title)
			a.ID = 10
			return a, nil
		},
	)

	result, err := service.CreateArticle(actingAs("7", "USER"), &CreateArticleRequest{Title: " Hello ", Post: "World"})
	require.NoError(t, err)
	assert.Equal(t, uint(10), result.ID)
	assert.Equal(t, uint(7), result.AuthorID)
}

func TestCreateArticle_RequiresAuthentication(t *testing.T) {
	_, service := newTestService(t, nil)

	_, err := service.CreateArticle(context.Background(), &CreateArticleRequest{Title: "t", Post: "p"})
	assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.GetErrorType(err))
}

func TestGetArticle_NotFound(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(404)).Return(nil, NewArticleNotFoundError())

	result, err := service.GetArticle(context.Background(), 404)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrArticleNotFound)
	assert.Equal(t, apperrors.StatusNotFound, apperrors.HTTPStatusCode(err))
}

func TestGetArticle_ReadsThroughCache(t *testing.T) {
	cache := newMemoryCache()
	mockRepo, service := newTestService(t, cache)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(10)).Return(sampleArticle(), nil).Times(1)

	first, err := service.GetArticle(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, cache.has("article:10"))
	assert.Equal(t, time.Minute, cache.ttls["article:10"])

	second, err := service.GetArticle(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "jdoe", second.Author.Username)
}

func TestGetArticle_CacheFailureFallsBackToRepository(t *testing.T) {
	cache := newMemoryCache()
	cache.failing = true
	mockRepo, service := newTestService(t, cache)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(10)).Return(sampleArticle(), nil).Times(2)

	for i := 0; i < 2; i++ {
		result, err := service.GetArticle(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, "Hello", result.Title)
	}
}

func TestGetArticle_MalformedCacheEntryIsDiscarded(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["article:10"] = "{not json"
	mockRepo, service := newTestService(t, cache)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(10)).Return(sampleArticle(), nil)

	result, err := service.GetArticle(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Hello", result.Title)
}

func TestUpdateArticle_AuthorInvalidatesCache(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["article:10"] = `{"id":10,"title":"stale"}`
	mockRepo, service := newTestService(t, cache)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(10)).Return(sampleArticle(), nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), []string{"Title"}).Return(nil)

	result, err := service.UpdateArticle(actingAs("7", "USER"), 10, &UpdateArticleRequest{Title: strPtr("Fresh")})
	require.NoError(t, err)
	assert.Equal(t, "Fresh", result.Title)
	assert.False(t, cache.has("article:10"))
}

func TestUpdateArticle_NonAuthorIsForbidden(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(10)).Return(sampleArticle(), nil)

	_, err := service.UpdateArticle(actingAs("8", "USER"), 10, &UpdateArticleRequest{Post: strPtr("defaced")})
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.Equal(t, apperrors.StatusForbidden, apperrors.HTTPStatusCode(err))
}

func TestUpdateArticle_EmptyRequest(t *testing.T) {
	_, service := newTestService(t, nil)

	_, err := service.UpdateArticle(actingAs("7", "USER"), 10, &UpdateArticleRequest{})
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestDeleteArticle_AdminMayDeleteAnyArticle(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["article:10"] = `{"id":10}`
	mockRepo, service := newTestService(t, cache)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(10)).Return(sampleArticle(), nil)
	mockRepo.EXPECT().Delete(gomock.Any(), uint(10)).Return(nil)

	require.NoError(t, service.DeleteArticle(actingAs("1", "ADMIN"), 10))
	assert.False(t, cache.has("article:10"))
}

func TestDeleteArticle_Missing(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().GetByID(gomock.Any(), uint(11)).Return(nil, NewArticleNotFoundError())

	err := service.DeleteArticle(actingAs("7", "USER"), 11)
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestListArticles_PassesFilterAndClampsLimit(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().List(gomock.Any(), ListFilter{AuthorID: 7}, 20, 5).
		Return([]*models.Article{sampleArticle()}, int64(6), nil)

	articles, total, err := service.ListArticles(context.Background(), ListFilter{AuthorID: 7}, 0, 5)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
	assert.Equal(t, int64(6), total)
}
