package user

import (
	"context"
	"sync"
	"time"

	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MemoryStore keeps users in process memory. It is used for local runs
// (STORE=memory) and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	byName    map[string]*types.User
	claims    map[string][]types.Claim
	hasher    *Hasher
	validator *Validator
	roles     RoleAssigner
	logger    *logrus.Logger
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(hasher *Hasher, validator *Validator, roles RoleAssigner, logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		byName:    make(map[string]*types.User),
		claims:    make(map[string][]types.Claim),
		hasher:    hasher,
		validator: validator,
		roles:     roles,
		logger:    logger,
		now:       time.Now,
	}
}

// FindByUsername returns a copy of the user with exactly this name, or nil.
func (s *MemoryStore) FindByUsername(ctx context.Context, name string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byName[name]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// VerifyPassword compares password against the user's hash. A nil user is
// compared against the decoy hash and never matches.
func (s *MemoryStore) VerifyPassword(ctx context.Context, u *types.User, password string) (bool, error) {
	hash := ""
	if u != nil {
		hash = u.PasswordHash
	}
	return s.hasher.Compare(hash, password)
}

// Create validates and stores a new user. Checking for an existing name and
// inserting happen under one lock.
func (s *MemoryStore) Create(ctx context.Context, u *types.User, password string) (*types.User, error) {
	if verr := s.validator.Validate(u, password); verr != nil {
		s.mu.RLock()
		_, exists := s.byName[u.UserName]
		s.mu.RUnlock()
		if exists {
			verr.Errors = append([]types.FieldError{duplicateUserName(u.UserName)}, verr.Errors...)
		}
		return nil, verr
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[u.UserName]; exists {
		return nil, &types.ValidationError{Errors: []types.FieldError{duplicateUserName(u.UserName)}}
	}

	created := &types.User{
		ID:           uuid.NewString(),
		UserName:     u.UserName,
		Email:        u.Email,
		PhoneNumber:  u.PhoneNumber,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	s.byName[created.UserName] = created

	s.logger.WithFields(logrus.Fields{
		"user_id":  created.ID,
		"username": created.UserName,
	}).Debug("User created in memory store")

	cp := *created
	return &cp, nil
}

// GetClaims returns the user's stored claims in insertion order.
func (s *MemoryStore) GetClaims(ctx context.Context, u *types.User) ([]types.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Claim(nil), s.claims[u.ID]...), nil
}

// AddClaim appends a stored claim for the user.
func (s *MemoryStore) AddClaim(ctx context.Context, u *types.User, claim types.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[u.ID] = append(s.claims[u.ID], claim)
	return nil
}

// GetRoles returns the names of the roles assigned to the user.
func (s *MemoryStore) GetRoles(ctx context.Context, u *types.User) ([]string, error) {
	return s.roles.GetRoles(ctx, u.ID)
}

// AssignRole grants role to the user called username.
func (s *MemoryStore) AssignRole(ctx context.Context, username, role string) error {
	u, err := s.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return s.roles.AssignRole(ctx, u.ID, role)
}
