package auth

import (
	"github.com/wacka-accessories/wacka-backend/internal/users"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service customer sign-up payload.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// CreateUserRequest lets an admin create an account with any role.
type CreateUserRequest struct {
	RegisterRequest
	Role enums.UserRole `json:"role" validate:"required"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token string         `json:"token"`
	User  *users.UserDTO `json:"user"`
}
