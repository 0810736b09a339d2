package auth

import (
	"context"
	"time"

	"github.com/akeren/go-rest-starter/domain/user"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/constants"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
)

// TokenIssuer signs access tokens. Satisfied by *auth.TokenService.
type TokenIssuer interface {
	Issue(userID uint, username string, roles []string) (string, time.Time, error)
}

type AuthService interface {
	// Register creates a USER account and signs it in.
	Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error)

	// Login exchanges valid credentials of an enabled account for an access token.
	Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error)
}

type authService struct {
	logger *log.Logger
	users  user.UserService
	tokens TokenIssuer
}

func NewAuthService(logger *log.Logger, users user.UserService, tokens TokenIssuer) AuthService {
	return &authService{logger: logger, users: users, tokens: tokens}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	created, err := s.users.CreateUser(ctx, ToCreateUserRequest(req))
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, created)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	authenticated, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, authenticated)
}

func (s *authService) issue(ctx context.Context, u *user.UserResponse) (*TokenResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Username, u.Roles)
	if err != nil {
		logger.Error("Failed to issue access token", "userId", u.ID, "error", err)
		return nil, apperrors.NewInternalServerError("unable to issue access token", err)
	}

	logger.Info("Access token issued", "userId", u.ID)

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC().Format(constants.RFC3339DateTimeFormat),
		User:        *u,
	}, nil
}
