package auth

import (
	"context"

	"github.com/Gkemhcs/kavach-auth/internal/types"
)

// Store is the user store the account service depends on.
type Store interface {
	// FindByUsername returns nil, nil when no user has this exact name.
	FindByUsername(ctx context.Context, name string) (*types.User, error)
	// VerifyPassword must accept a nil user and still do the comparison work.
	VerifyPassword(ctx context.Context, user *types.User, password string) (bool, error)
	// Create returns a *types.ValidationError when the user is rejected.
	Create(ctx context.Context, user *types.User, password string) (*types.User, error)
	GetClaims(ctx context.Context, user *types.User) ([]types.Claim, error)
	GetRoles(ctx context.Context, user *types.User) ([]string, error)
}

// LoginRequest is the body of POST /account/login. Missing fields are left
// empty and rejected by Verify like any other bad credential.
type LoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// RegisterRequest is the body of POST /account/register. Field rules are
// enforced by the store so every failure is reported at once.
type RegisterRequest struct {
	UserName    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// RegisterResponse is returned when the account was created.
type RegisterResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// LoginSucceededMessage is the message sent with every issued token.
const LoginSucceededMessage = "Login Successfully"
