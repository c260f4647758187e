package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Gkemhcs/kavach-auth/internal/errors"
	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/Gkemhcs/kavach-auth/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PostgresStore keeps users and their claims in PostgreSQL. Roles are
// delegated to the Casbin-backed role store.
type PostgresStore struct {
	db        *sql.DB
	hasher    *Hasher
	validator *Validator
	roles     RoleAssigner
	logger    *logrus.Logger
}

// NewPostgresStore creates a store on an open connection pool.
func NewPostgresStore(db *sql.DB, hasher *Hasher, validator *Validator, roles RoleAssigner, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:        db,
		hasher:    hasher,
		validator: validator,
		roles:     roles,
		logger:    logger,
	}
}

// FindByUsername returns the user with exactly this name, or nil when there is none.
func (s *PostgresStore) FindByUsername(ctx context.Context, name string) (*types.User, error) {
	query :=
		`SELECT id, username, email, phone_number, password_hash, created_at FROM users
		 WHERE username = $1
		 `

	var phone sql.NullString
	u := &types.User{}
	err := s.db.QueryRowContext(ctx, query, name).
		Scan(&u.ID, &u.UserName, &u.Email, &phone, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.PhoneNumber = utils.RefString(phone)

	return u, nil
}

// VerifyPassword compares password against the user's hash. A nil user is
// compared against the decoy hash and never matches.
func (s *PostgresStore) VerifyPassword(ctx context.Context, u *types.User, password string) (bool, error) {
	hash := ""
	if u != nil {
		hash = u.PasswordHash
	}
	return s.hasher.Compare(hash, password)
}

// Create validates and inserts a new user. Duplicate names are caught by the
// unique index on users.username.
func (s *PostgresStore) Create(ctx context.Context, u *types.User, password string) (*types.User, error) {
	if verr := s.validator.Validate(u, password); verr != nil {
		exists, err := s.exists(ctx, u.UserName)
		if err != nil {
			return nil, err
		}
		if exists {
			verr.Errors = append([]types.FieldError{duplicateUserName(u.UserName)}, verr.Errors...)
		}
		return nil, verr
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, username, email, phone_number, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	created := &types.User{
		ID:           uuid.NewString(),
		UserName:     u.UserName,
		Email:        u.Email,
		PhoneNumber:  u.PhoneNumber,
		PasswordHash: hash,
	}
	err = s.db.QueryRowContext(ctx, query,
		created.ID, created.UserName, created.Email, utils.DerefString(created.PhoneNumber), created.PasswordHash,
	).Scan(&created.CreatedAt)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, &types.ValidationError{Errors: []types.FieldError{duplicateUserName(u.UserName)}}
		}
		// users_username_length backs up the validator's length rule.
		if apperrors.IsCheckConstraintViolation(err) {
			return nil, &types.ValidationError{Errors: []types.FieldError{invalidUserName(u.UserName)}}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  created.ID,
		"username": created.UserName,
	}).Debug("User row inserted")

	return created, nil
}

func (s *PostgresStore) exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// GetClaims returns the user's stored claims in insertion order.
func (s *PostgresStore) GetClaims(ctx context.Context, u *types.User) ([]types.Claim, error) {
	query :=
		`SELECT claim_type, claim_value FROM user_claims
		 WHERE user_id = $1
		 ORDER BY id
		 `

	rows, err := s.db.QueryContext(ctx, query, u.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var claims []types.Claim
	for rows.Next() {
		var c types.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return claims, nil
}

// AddClaim appends a stored claim for the user.
func (s *PostgresStore) AddClaim(ctx context.Context, u *types.User, claim types.Claim) error {
	query :=
		`INSERT INTO user_claims (user_id, claim_type, claim_value)
		 VALUES ($1, $2, $3)
		 `

	if _, err := s.db.ExecContext(ctx, query, u.ID, claim.Type, claim.Value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetRoles returns the names of the roles assigned to the user.
func (s *PostgresStore) GetRoles(ctx context.Context, u *types.User) ([]string, error) {
	return s.roles.GetRoles(ctx, u.ID)
}

// AssignRole grants role to the user called username.
func (s *PostgresStore) AssignRole(ctx context.Context, username, role string) error {
	u, err := s.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return s.roles.AssignRole(ctx, u.ID, role)
}
