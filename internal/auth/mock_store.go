package auth

import (
	"context"

	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store for testing purposes
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByUsername(ctx context.Context, name string) (*types.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockStore) VerifyPassword(ctx context.Context, user *types.User, password string) (bool, error) {
	args := m.Called(ctx, user, password)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, user *types.User, password string) (*types.User, error) {
	args := m.Called(ctx, user, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockStore) GetClaims(ctx context.Context, user *types.User) ([]types.Claim, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Claim), args.Error(1)
}

func (m *MockStore) GetRoles(ctx context.Context, user *types.User) ([]string, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
