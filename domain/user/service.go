package user

import (
	"context"
	"slices"
	"strings"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/auth"
	"github.com/akeren/go-rest-starter/pkg/constants"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

type UserService interface {
	// CreateUser registers a user; without explicit roles the user gets USER.
	CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id uint) (*UserResponse, error)

	// GetCurrentUser retrieves the user behind the authenticated request.
	GetCurrentUser(ctx context.Context) (*UserResponse, error)

	// ListUsers returns one page of users and the total count.
	ListUsers(ctx context.Context, limit, offset int) ([]UserResponse, int64, error)

	// UpdateUser applies a partial update. Users may edit themselves; roles and account
	// status may only be changed by an administrator.
	UpdateUser(ctx context.Context, id uint, req *UpdateUserRequest) (*UserResponse, error)

	// DeleteUser removes a user and their articles.
	DeleteUser(ctx context.Context, id uint) error

	// Authenticate checks credentials and returns the user when they may sign in.
	Authenticate(ctx context.Context, username, password string) (*UserResponse, error)
}

// ArticleCache drops cached article views, which embed their author's name and username.
type ArticleCache interface {
	InvalidateArticles(ctx context.Context, ids []uint)
}

type userService struct {
	logger     *log.Logger
	repository UserRepository
	articles   ArticleCache
}

// NewUserService builds the service; articles may be nil when no article cache is configured.
func NewUserService(logger *log.Logger, repository UserRepository, articles ArticleCache) UserService {
	return &userService{logger: logger, repository: repository, articles: articles}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("CreateUser received empty request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		return nil, apperrors.NewInternalServerError("unable to create user", err)
	}

	created, err := s.repository.Create(ctx, ToUserModel(req, hashed))
	if err != nil {
		logger.Error("Failed to create user", "username", req.Username, "error", err)
		return nil, err
	}

	logger.Info("User created", "id", created.ID, "username", created.Username)

	response := ToUserResponse(created)
	return &response, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*UserResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		logger.Error("GetUser received invalid ID")
		return nil, apperrors.NewInvalidRequestError("invalid user ID", nil)
	}

	u, err := s.repository.FindByID(ctx, id)
	if err != nil {
		logger.Warn("Failed to find user", "id", id, "error", err)
		return nil, err
	}

	response := ToUserResponse(u)
	return &response, nil
}

func (s *userService) GetCurrentUser(ctx context.Context) (*UserResponse, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("authentication required", err)
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid token subject", err)
	}

	return s.GetUser(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]UserResponse, int64, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if limit <= 0 || limit > constants.MaxPageLimit {
		limit = constants.DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.repository.List(ctx, limit, offset)
	if err != nil {
		logger.Error("Failed to list users", "error", err)
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(u))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uint, req *UpdateUserRequest) (*UserResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		logger.Error("UpdateUser received invalid ID")
		return nil, apperrors.NewInvalidRequestError("invalid user ID", nil)
	}
	if req == nil || req.isEmpty() {
		return nil, apperrors.NewInvalidRequestError("at least one field must be provided for update", nil)
	}

	if err := authorizeUpdate(ctx, id, req); err != nil {
		logger.Warn("User update rejected", "id", id, "error", err)
		return nil, err
	}

	u, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields, err := applyUpdate(u, req)
	if err != nil {
		logger.Error("Failed to prepare user update", "id", id, "error", err)
		return nil, err
	}

	if err := s.repository.Update(ctx, u, fields); err != nil {
		logger.Error("Failed to update user", "id", id, "error", err)
		return nil, err
	}

	if touchesAuthorSummary(fields) {
		s.invalidateAuthoredArticles(ctx, id)
	}

	logger.Info("User updated", "id", id, "fields", fields)

	response := ToUserResponse(u)
	return &response, nil
}

func touchesAuthorSummary(fields []string) bool {
	return slices.Contains(fields, "Name") || slices.Contains(fields, "Username")
}

func (s *userService) invalidateAuthoredArticles(ctx context.Context, id uint) {
	if s.articles == nil {
		return
	}

	ids, err := s.repository.ArticleIDsByAuthor(ctx, id)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Warn("Failed to list authored articles for cache invalidation", "id", id, "error", err)
		return
	}
	s.articles.InvalidateArticles(ctx, ids)
}

func authorizeUpdate(ctx context.Context, id uint, req *UpdateUserRequest) error {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return apperrors.NewUnauthorizedError("authentication required", err)
	}

	isAdmin := claims.HasRole(constants.RoleAdmin)
	actorID, err := claims.UserID()
	if err != nil {
		return apperrors.NewUnauthorizedError("invalid token subject", err)
	}

	if actorID != id && !isAdmin {
		return apperrors.NewForbiddenError("you can only update your own account", nil)
	}
	if req.touchesPrivileges() && !isAdmin {
		return apperrors.NewForbiddenError("only administrators can change roles or account status", nil)
	}

	return nil
}

func applyUpdate(u *models.User, req *UpdateUserRequest) ([]string, error) {
	var fields []string

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
		fields = append(fields, "Name")
	}
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
		fields = append(fields, "Username")
	}
	if req.Email != nil {
		u.Email = normalizeEmail(*req.Email)
		fields = append(fields, "Email")
	}
	if req.Password != nil {
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return nil, apperrors.NewInternalServerError("unable to update user", err)
		}
		u.Password = hashed
		fields = append(fields, "Password")
	}
	if req.Roles != nil {
		if len(req.Roles) == 0 {
			return nil, apperrors.NewInvalidRequestError("a user needs at least one role", nil)
		}
		u.Roles = req.Roles
		fields = append(fields, "Roles")
	}
	if req.IsAccountDisabled != nil {
		u.IsAccountDisabled = *req.IsAccountDisabled
		fields = append(fields, "IsAccountDisabled")
	}

	return fields, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		logger.Error("DeleteUser received invalid ID")
		return apperrors.NewInvalidRequestError("invalid user ID", nil)
	}

	articleIDs, err := s.repository.Delete(ctx, id)
	if err != nil {
		logger.Error("Failed to delete user", "id", id, "error", err)
		return err
	}

	if s.articles != nil {
		s.articles.InvalidateArticles(ctx, articleIDs)
	}

	logger.Info("User deleted", "id", id, "articles", len(articleIDs))
	return nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*UserResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	u, err := s.repository.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			logger.Warn("Login attempt for unknown username")
			return nil, NewInvalidCredentialsError()
		}
		return nil, err
	}

	if !CheckPassword(u.Password, password) {
		logger.Warn("Login attempt with wrong password", "userId", u.ID)
		return nil, NewInvalidCredentialsError()
	}

	if u.IsAccountDisabled {
		logger.Warn("Login attempt on disabled account", "userId", u.ID)
		return nil, NewAccountDisabledError()
	}

	response := ToUserResponse(u)
	return &response, nil
}
