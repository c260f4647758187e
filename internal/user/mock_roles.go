package user

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRoleAssigner is a mock implementation of RoleAssigner for testing purposes
type MockRoleAssigner struct {
	mock.Mock
}

func (m *MockRoleAssigner) AssignRole(ctx context.Context, userID, role string) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockRoleAssigner) GetRoles(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
