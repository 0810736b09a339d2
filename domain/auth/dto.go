package auth

import (
	"github.com/akeren/go-rest-starter/domain/user"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Username string `json:"username" binding:"required,min=3,max=200,excludesall= "`
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   string            `json:"expires_at"`
	User        user.UserResponse `json:"user"`
}

// ToCreateUserRequest drops any role input: self-registered accounts are always plain users.
func ToCreateUserRequest(req *RegisterRequest) *user.CreateUserRequest {
	if req == nil {
		return nil
	}
	return &user.CreateUserRequest{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
}
