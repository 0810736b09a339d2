package user

import (
	"context"
	"errors"
	"io"
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

func newTestService(t *testing.T) (*MockUserRepository, UserService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockUserRepository(ctrl)
	logger := log.NewLogger(log.Options{Output: io.Discard})
	return mockRepo, NewUserService(logger, mockRepo, nil)
}

func actingAs(id string, roles ...string) context.Context {
	claims := &auth.Claims{Username: "actor", Roles: roles}
	claims.Subject = id
	return auth.ContextWithClaims(context.Background(), claims)
}

func strPtr(s string) *string { return &s }

func TestCreateUser_HashesPasswordAndDefaultsRole(t *testing.T) {
	mockRepo, service := newTestService(t)

	req := &CreateUserRequest{
		Name:     "Jane Doe",
		Username: "jdoe",
		Email:    "  JDoe@Example.com ",
		Password: "Pass1234",
	}

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *models.User) (*models.User, error) {
			assert.Equal(t, "jdoe@example.com", u.Email)
			assert.Equal(t, []string{"USER"}, u.Roles)
			assert.NotEqual(t, "Pass1234", u.Password)
			assert.True(t, CheckPassword(u.Password, "Pass1234"))
			u.ID = 1
			u.CreatedAt = time.Now()
			return u, nil
		},
	)

	result, err := service.CreateUser(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint(1), result.ID)
	assert.Equal(t, "jdoe", result.Username)
	assert.Equal(t, []string{"USER"}, result.Roles)
}

func TestCreateUser_NilRequest(t *testing.T) {
	_, service := newTestService(t)

	result, err := service.CreateUser(context.Background(), nil)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestCreateUser_DuplicateIsConflict(t *testing.T) {
	mockRepo, service := newTestService(t)

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, NewDuplicateUserError(errors.New("UNIQUE constraint failed: users.username")))

	result, err := service.CreateUser(context.Background(), &CreateUserRequest{
		Name: "Jane", Username: "jdoe", Email: "j@example.com", Password: "Pass1234",
	})
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestGetUser_NotFound(t *testing.T) {
	mockRepo, service := newTestService(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), uint(99)).Return(nil, NewUserNotFoundError())

	result, err := service.GetUser(context.Background(), 99)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, apperrors.StatusNotFound, apperrors.HTTPStatusCode(err))
}

func TestGetUser_ZeroID(t *testing.T) {
	_, service := newTestService(t)

	_, err := service.GetUser(context.Background(), 0)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestGetCurrentUser(t *testing.T) {
	mockRepo, service := newTestService(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), uint(7)).Return(&models.User{ID: 7, Username: "me"}, nil)

	result, err := service.GetCurrentUser(actingAs("7", "USER"))
	require.NoError(t, err)
	assert.Equal(t, "me", result.Username)

	_, err = service.GetCurrentUser(context.Background())
	assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.GetErrorType(err))
}

func TestListUsers_ClampsLimit(t *testing.T) {
	mockRepo, service := newTestService(t)

	mockRepo.EXPECT().List(gomock.Any(), 20, 0).Return([]*models.User{{ID: 1}, {ID: 2}}, int64(2), nil)

	users, total, err := service.ListUsers(context.Background(), 1000, -5)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, int64(2), total)
}

func TestUpdateUser_SelfCanChangeProfile(t *testing.T) {
	mockRepo, service := newTestService(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), uint(7)).Return(&models.User{ID: 7, Name: "Old", Roles: []string{"USER"}}, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), []string{"Name", "Password"}).DoAndReturn(
		func(_ context.Context, u *models.User, _ []string) error {
			assert.Equal(t, "New Name", u.Name)
			assert.True(t, CheckPassword(u.Password, "NewPass123"))
			return nil
		},
	)

	result, err := service.UpdateUser(actingAs("7", "USER"), 7, &UpdateUserRequest{
		Name:     strPtr(" New Name "),
		Password: strPtr("NewPass123"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", result.Name)
}

func TestUpdateUser_OtherUserIsForbidden(t *testing.T) {
	_, service := newTestService(t)

	_, err := service.UpdateUser(actingAs("8", "USER"), 7, &UpdateUserRequest{Name: strPtr("Hijack")})
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.GetErrorType(err))
}

func TestUpdateUser_RolesRequireAdmin(t *testing.T) {
	_, service := newTestService(t)

	_, err := service.UpdateUser(actingAs("7", "USER"), 7, &UpdateUserRequest{Roles: []string{"ADMIN"}})
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.GetErrorType(err))
}

func TestUpdateUser_AdminCanDisableAccount(t *testing.T) {
	mockRepo, service := newTestService(t)
	disabled := true

	mockRepo.EXPECT().FindByID(gomock.Any(), uint(7)).Return(&models.User{ID: 7, Roles: []string{"USER"}}, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), []string{"IsAccountDisabled"}).Return(nil)

	result, err := service.UpdateUser(actingAs("1", "ADMIN"), 7, &UpdateUserRequest{IsAccountDisabled: &disabled})
	require.NoError(t, err)
	assert.True(t, result.IsAccountDisabled)
}

func TestUpdateUser_EmptyRequest(t *testing.T) {
	_, service := newTestService(t)

	_, err := service.UpdateUser(actingAs("7", "USER"), 7, &UpdateUserRequest{})
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestDeleteUser(t *testing.T) {
	mockRepo, service := newTestService(t)

	mockRepo.EXPECT().Delete(gomock.Any(), uint(3)).Return([]uint{11}, nil)
	assert.NoError(t, service.DeleteUser(context.Background(), 3))

	mockRepo.EXPECT().Delete(gomock.Any(), uint(4)).Return(nil, NewUserNotFoundError())
	assert.ErrorIs(t, service.DeleteUser(context.Background(), 4), ErrUserNotFound)
}

type recordingArticleCache struct {
	invalidated []uint
}

func (r *recordingArticleCache) InvalidateArticles(_ context.Context, ids []uint) {
	r.invalidated = append(r.invalidated, ids...)
}

func newTestServiceWithArticleCache(t *testing.T) (*MockUserRepository, UserService, *recordingArticleCache) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockUserRepository(ctrl)
	articles := &recordingArticleCache{}
	logger := log.NewLogger(log.Options{Output: io.Discard})
	return mockRepo, NewUserService(logger, mockRepo, articles), articles
}

func TestDeleteUser_InvalidatesAuthoredArticles(t *testing.T) {
	mockRepo, service, articles := newTestServiceWithArticleCache(t)

	mockRepo.EXPECT().Delete(gomock.Any(), uint(3)).Return([]uint{11, 12}, nil)
	require.NoError(t, service.DeleteUser(context.Background(), 3))
	assert.Equal(t, []uint{11, 12}, articles.invalidated)

	mockRepo.EXPECT().Delete(gomock.Any(), uint(4)).Return(nil, NewUserNotFoundError())
	assert.Error(t, service.DeleteUser(context.Background(), 4))
	assert.Equal(t, []uint{11, 12}, articles.invalidated)
}

func TestUpdateUser_RenameInvalidatesAuthoredArticles(t *testing.T) {
	mockRepo, service, articles := newTestServiceWithArticleCache(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), uint(7)).Return(&models.User{ID: 7, Username: "old", Roles: []string{"USER"}}, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), []string{"Username"}).Return(nil)
	mockRepo.EXPECT().ArticleIDsByAuthor(gomock.Any(), uint(7)).Return([]uint{21}, nil)

	_, err := service.UpdateUser(actingAs("7", "USER"), 7, &UpdateUserRequest{Username: strPtr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, []uint{21}, articles.invalidated)
}

func TestUpdateUser_PasswordChangeKeepsArticleCache(t *testing.T) {
	mockRepo, service, articles := newTestServiceWithArticleCache(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), uint(7)).Return(&models.User{ID: 7, Roles: []string{"USER"}}, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), []string{"Password"}).Return(nil)

	_, err := service.UpdateUser(actingAs("7", "USER"), 7, &UpdateUserRequest{Password: strPtr("NewPass123")})
	require.NoError(t, err)
	assert.Empty(t, articles.invalidated)
}

func TestAuthenticate(t *testing.T) {
	hashed, err := HashPassword("Pass1234")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		mockRepo, service := newTestService(t)
		mockRepo.EXPECT().FindByUsername(gomock.Any(), "jdoe").
			Return(&models.User{ID: 3, Username: "jdoe", Password: hashed, Roles: []string{"USER"}}, nil)

		result, err := service.Authenticate(context.Background(), " jdoe ", "Pass1234")
		require.NoError(t, err)
		assert.Equal(t, uint(3), result.ID)
	})

	t.Run("unknown username", func(t *testing.T) {
		mockRepo, service := newTestService(t)
		mockRepo.EXPECT().FindByUsername(gomock.Any(), "ghost").Return(nil, NewUserNotFoundError())

		_, err := service.Authenticate(context.Background(), "ghost", "Pass1234")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo, service := newTestService(t)
		mockRepo.EXPECT().FindByUsername(gomock.Any(), "jdoe").
			Return(&models.User{ID: 3, Username: "jdoe", Password: hashed}, nil)

		_, err := service.Authenticate(context.Background(), "jdoe", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.GetErrorType(err))
	})

	t.Run("disabled account", func(t *testing.T) {
		mockRepo, service := newTestService(t)
		mockRepo.EXPECT().FindByUsername(gomock.Any(), "jdoe").
			Return(&models.User{ID: 3, Username: "jdoe", Password: hashed, IsAccountDisabled: true}, nil)

		_, err := service.Authenticate(context.Background(), "jdoe", "Pass1234")
		assert.ErrorIs(t, err, ErrAccountDisabled)
		assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.GetErrorType(err))
	})
}
