package jwt

import (
	"errors"
	"fmt"
	"time"
)

// MinKeyLength is the smallest HMAC key accepted for HS256 (256 bits).
const MinKeyLength = 32

// Claim types written into every issued token.
const (
	ClaimSubject        = "sub"          // username
	ClaimTokenID        = "jti"          // unique token identifier
	ClaimEmail          = "email"        // email address
	ClaimNameIdentifier = "nameid"       // secondary identifier mirroring the username
	ClaimEmailAddress   = "email"        // email-type claim, same wire name as ClaimEmail
	ClaimSID            = "sid"          // user's unique identifier
	ClaimPhoneNumber    = "phone_number" // phone, empty string when unset
	ClaimRole           = "role"         // one per assigned role
)

// Registered payload members controlled by the signing configuration.
const (
	claimIssuer    = "iss"
	claimAudience  = "aud"
	claimExpires   = "exp"
	claimNotBefore = "nbf"
	claimIssuedAt  = "iat"
)

var (
	// ErrInvalidToken is returned when a token fails signature, issuer or audience checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token's exp is in the past.
	ErrExpiredToken = errors.New("expired token")
	// ErrKeyTooShort is returned by NewSigningConfig for keys under MinKeyLength bytes.
	ErrKeyTooShort = fmt.Errorf("signing key must be at least %d bytes", MinKeyLength)
	// ErrMissingBinding is returned by NewSigningConfig when issuer or audience is empty.
	ErrMissingBinding = errors.New("issuer and audience must be set")
)

// SigningConfig is the process-wide signing configuration. It is built once at
// startup and is read-only afterwards, so it can be shared across goroutines.
type SigningConfig struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
}

// NewSigningConfig copies the key and validates the inputs.
func NewSigningConfig(key []byte, issuer, audience string, lifetime time.Duration) (SigningConfig, error) {
	if len(key) < MinKeyLength {
		return SigningConfig{}, ErrKeyTooShort
	}
	if issuer == "" || audience == "" {
		return SigningConfig{}, ErrMissingBinding
	}
	if lifetime <= 0 {
		return SigningConfig{}, fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return SigningConfig{
		key:      k,
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
	}, nil
}

func (c SigningConfig) Issuer() string          { return c.issuer }
func (c SigningConfig) Audience() string        { return c.audience }
func (c SigningConfig) Lifetime() time.Duration { return c.lifetime }

// IssuedToken is the result of a successful issuance. Nothing about it is stored server side.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
	Claims    ClaimSet
}

// VerifiedToken is what a consumer gets back after Verify accepts a token.
type VerifiedToken struct {
	Subject   string    `json:"subject"`
	ID        string    `json:"token_id"`
	Issuer    string    `json:"issuer"`
	Audience  string    `json:"audience"`
	ExpiresAt time.Time `json:"expires_at"`
	Claims    ClaimSet  `json:"claims"`
}
