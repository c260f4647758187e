package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gkemhcs/kavach-auth/internal/auth/jwt"
	apperrors "github.com/Gkemhcs/kavach-auth/internal/errors"
	"github.com/Gkemhcs/kavach-auth/internal/metrics"
	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/sirupsen/logrus"
)

// AuthService verifies credentials, issues access tokens and registers accounts.
type AuthService struct {
	store    Store
	jwter    *jwt.Manager
	recorder metrics.Recorder
	logger   *logrus.Logger
}

// NewAuthService creates a new AuthService with the given store and JWT manager.
func NewAuthService(store Store, jwter *jwt.Manager, recorder metrics.Recorder, logger *logrus.Logger) *AuthService {
	return &AuthService{
		store:    store,
		jwter:    jwter,
		recorder: recorder,
		logger:   logger,
	}
}

// Verify checks creds against the store. An unknown username and a wrong
// password both yield apperrors.ErrInvalidCredentials; any other error is
// an infrastructure fault.
func (s *AuthService) Verify(ctx context.Context, creds types.Credentials) (*types.User, error) {
	user, err := s.store.FindByUsername(ctx, creds.UserName)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// The comparison runs for unknown users too.
	ok, err := s.store.VerifyPassword(ctx, user, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if user == nil || !ok {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken loads the user's stored claims and roles and signs a token.
func (s *AuthService) IssueToken(ctx context.Context, user *types.User) (*jwt.IssuedToken, error) {
	claims, err := s.store.GetClaims(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	roles, err := s.store.GetRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	issued, err := s.jwter.Issue(user, claims, roles)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTokenIssued()
	return issued, nil
}

// Login verifies creds and returns a freshly issued token.
func (s *AuthService) Login(ctx context.Context, creds types.Credentials) (*jwt.IssuedToken, error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"operation": "login",
		"username":  creds.UserName,
	})

	user, err := s.Verify(ctx, creds)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			s.recorder.RecordLogin(metrics.OutcomeInvalidCredentials)
			logEntry.Warn("Invalid login attempt")
			return nil, err
		}
		s.recorder.RecordLogin(metrics.OutcomeError)
		logEntry.WithField("error", err.Error()).Error("Credential verification failed")
		return nil, err
	}

	issued, err := s.IssueToken(ctx, user)
	if err != nil {
		s.recorder.RecordLogin(metrics.OutcomeError)
		logEntry.WithField("error", err.Error()).Error("Token issuance failed")
		return nil, err
	}

	s.recorder.RecordLogin(metrics.OutcomeSuccess)
	logEntry.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"token_id":   issued.ID,
		"expires_at": issued.ExpiresAt,
	}).Info("User logged in")
	return issued, nil
}

// Register creates a user with no claims or roles. A *types.ValidationError
// from the store is returned unchanged.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*types.User, error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"operation": "register",
		"username":  req.UserName,
	})

	user := &types.User{
		UserName:    req.UserName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}

	created, err := s.store.Create(ctx, user, req.Password)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			s.recorder.RecordRegistration(metrics.OutcomeValidationFailed)
			logEntry.WithField("codes", verr.Error()).Info("Registration rejected")
			return nil, err
		}
		s.recorder.RecordRegistration(metrics.OutcomeError)
		logEntry.WithField("error", err.Error()).Error("Registration failed")
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.recorder.RecordRegistration(metrics.OutcomeSuccess)
	logEntry.WithField("user_id", created.ID).Info("User registered")
	return created, nil
}
