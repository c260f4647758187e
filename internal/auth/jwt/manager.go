package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gkemhcs/kavach-auth/internal/types"
	jwtx "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Manager issues and verifies HS256 access tokens bound to one SigningConfig.
type Manager struct {
	cfg   SigningConfig
	now   func() time.Time
	newID func() string
}

// NewManager creates a new JWT Manager with the given signing configuration.
func NewManager(cfg SigningConfig) *Manager {
	return &Manager{
		cfg:   cfg,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Issue assembles the claim set for user and returns a freshly signed token.
// storedClaims and roles are the values the store holds for the user at issuance time.
// Stored claims named like a registered JWT member are dropped.
// Every call produces a new token id, so Issue is never idempotent.
func (m *Manager) Issue(user *types.User, storedClaims []types.Claim, roles []string) (*IssuedToken, error) {
	if user == nil {
		return nil, errors.New("issue token: nil user")
	}
	if len(m.cfg.key) == 0 {
		return nil, errors.New("issue token: signing key unavailable")
	}

	tokenID := m.newID()

	claims := make(ClaimSet, 0, 7+len(storedClaims)+len(roles))
	claims.Add(ClaimSubject, user.UserName)
	claims.Add(ClaimTokenID, tokenID)
	claims.Add(ClaimEmail, user.Email)
	claims.Add(ClaimNameIdentifier, user.UserName)
	claims.Add(ClaimEmailAddress, user.Email)
	claims.Add(ClaimSID, user.ID)
	claims.Add(ClaimPhoneNumber, user.PhoneNumber)
	claims.Union(withoutRegistered(storedClaims))
	for _, role := range roles {
		claims.Add(ClaimRole, role)
	}

	expiresAt := m.now().UTC().Add(m.cfg.lifetime).Truncate(time.Second)

	payload := claims.toMapClaims()
	payload[claimIssuer] = m.cfg.issuer
	payload[claimAudience] = m.cfg.audience
	payload[claimExpires] = expiresAt.Unix()

	token := jwtx.NewWithClaims(jwtx.SigningMethodHS256, payload)
	signed, err := token.SignedString(m.cfg.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ID:        tokenID,
		ExpiresAt: expiresAt,
		Claims:    claims,
	}, nil
}

// Verify parses and validates a token string: signature, issuer, audience and expiry.
func (m *Manager) Verify(tokenStr string) (*VerifiedToken, error) {
	claims := jwtx.MapClaims{}
	parser := jwtx.NewParser(
		jwtx.WithValidMethods([]string{jwtx.SigningMethodHS256.Alg()}),
		jwtx.WithJSONNumber(),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwtx.Token) (interface{}, error) {
		return m.cfg.key, nil
	})
	if err != nil {
		if errors.Is(err, jwtx.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(m.cfg.issuer, true) || !claims.VerifyAudience(m.cfg.audience, true) {
		return nil, ErrInvalidToken
	}

	exp, err := numericDate(claims[claimExpires])
	if err != nil {
		return nil, ErrInvalidToken
	}

	set := claimSetFromMap(claims)
	subject, _ := set.First(ClaimSubject)
	tokenID, _ := set.First(ClaimTokenID)

	return &VerifiedToken{
		Subject:   subject,
		ID:        tokenID,
		Issuer:    m.cfg.issuer,
		Audience:  m.cfg.audience,
		ExpiresAt: exp,
		Claims:    set,
	}, nil
}

func numericDate(v interface{}) (time.Time, error) {
	switch exp := v.(type) {
	case json.Number:
		secs, err := exp.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(secs, 0).UTC(), nil
	case float64:
		return time.Unix(int64(exp), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("exp has unexpected type %T", v)
	}
}
