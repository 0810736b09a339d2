package user

import (
	"strings"

	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/constants"
)

type CreateUserRequest struct {
	Name     string   `json:"name" binding:"required,min=1,max=100"`
	Username string   `json:"username" binding:"required,min=3,max=200,excludesall= "`
	Email    string   `json:"email" binding:"required,email,max=200"`
	Password string   `json:"password" binding:"required,min=8,max=72"`
	Roles    []string `json:"roles" binding:"omitempty,dive,oneof=USER ADMIN"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Name              *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Username          *string  `json:"username" binding:"omitempty,min=3,max=200,excludesall= "`
	Email             *string  `json:"email" binding:"omitempty,email,max=200"`
	Password          *string  `json:"password" binding:"omitempty,min=8,max=72"`
	Roles             []string `json:"roles" binding:"omitempty,dive,oneof=USER ADMIN"`
	IsAccountDisabled *bool    `json:"is_account_disabled"`
}

func (r *UpdateUserRequest) isEmpty() bool {
	return r.Name == nil && r.Username == nil && r.Email == nil && r.Password == nil &&
		r.Roles == nil && r.IsAccountDisabled == nil
}

func (r *UpdateUserRequest) touchesPrivileges() bool {
	return r.Roles != nil || r.IsAccountDisabled != nil
}

type UserResponse struct {
	ID                uint     `json:"id"`
	Name              string   `json:"name"`
	Username          string   `json:"username"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
	IsAccountDisabled bool     `json:"is_account_disabled"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// ========================================
// Mappers
// ========================================

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToUserModel(req *CreateUserRequest, hashedPassword string) *models.User {
	if req == nil {
		return nil
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{constants.RoleUser}
	}

	return &models.User{
		Name:     strings.TrimSpace(req.Name),
		Username: strings.TrimSpace(req.Username),
		Email:    normalizeEmail(req.Email),
		Password: hashedPassword,
		Roles:    roles,
	}
}

func ToUserResponse(u *models.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}

	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	return UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Username:          u.Username,
		Email:             u.Email,
		Roles:             roles,
		IsAccountDisabled: u.IsAccountDisabled,
		CreatedAt:         u.CreatedAt.Format(constants.RFC3339DateTimeFormat),
		UpdatedAt:         u.UpdatedAt.Format(constants.RFC3339DateTimeFormat),
	}
}
