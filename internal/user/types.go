package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by administrative operations addressing a
// username that does not exist. Lookups used at login return nil instead.
var ErrUserNotFound = errors.New("user not found")

// RoleAssigner is the part of the role store the user stores delegate to.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, role string) error
	GetRoles(ctx context.Context, userID string) ([]string, error)
}
