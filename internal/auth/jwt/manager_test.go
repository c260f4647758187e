package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Gkemhcs/kavach-auth/internal/types"
	jwtx "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, lifetime time.Duration) *Manager {
	t.Helper()
	cfg, err := NewSigningConfig(testKey, "kavach-auth", "kavach-clients", lifetime)
	require.NoError(t, err)
	return NewManager(cfg)
}

func testUser() *types.User {
	return &types.User{
		ID:          "5f0c6c43-9a4d-4d3e-8c36-6d0c1c2b9f11",
		UserName:    "alice",
		Email:       "alice@example.com",
		PhoneNumber: "",
	}
}

func decodePayload(t *testing.T, token string) map[string]interface{} {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNewSigningConfig(t *testing.T) {
	_, err := NewSigningConfig([]byte("short"), "iss", "aud", time.Minute)
	assert.ErrorIs(t, err, ErrKeyTooShort)

	_, err = NewSigningConfig(testKey, "iss", "aud", 0)
	assert.Error(t, err)

	_, err = NewSigningConfig(testKey, "", "aud", time.Minute)
	assert.ErrorIs(t, err, ErrMissingBinding)

	_, err = NewSigningConfig(testKey, "iss", "", time.Minute)
	assert.ErrorIs(t, err, ErrMissingBinding)

	key := append([]byte(nil), testKey...)
	cfg, err := NewSigningConfig(key, "iss", "aud", time.Hour)
	require.NoError(t, err)
	key[0] = 'X'
	assert.Equal(t, byte('0'), cfg.key[0], "config must own a copy of the key")
	assert.Equal(t, "iss", cfg.Issuer())
	assert.Equal(t, "aud", cfg.Audience())
	assert.Equal(t, time.Hour, cfg.Lifetime())
}

func TestIssue_StandardClaimBlock(t *testing.T) {
	m := newTestManager(t, 30*time.Minute)
	user := testUser()

	issued, err := m.Issue(user, nil, nil)
	require.NoError(t, err)

	want := []types.Claim{
		{Type: ClaimSubject, Value: "alice"},
		{Type: ClaimTokenID, Value: issued.ID},
		{Type: ClaimEmail, Value: "alice@example.com"},
		{Type: ClaimNameIdentifier, Value: "alice"},
		{Type: ClaimEmailAddress, Value: "alice@example.com"},
		{Type: ClaimSID, Value: user.ID},
		{Type: ClaimPhoneNumber, Value: ""},
	}
	assert.Equal(t, ClaimSet(want), issued.Claims)
}

func TestIssue_UnionOrderWithoutDeduplication(t *testing.T) {
	m := newTestManager(t, 30*time.Minute)
	stored := []types.Claim{
		{Type: "permission", Value: "reports:read"},
		{Type: "permission", Value: "reports:read"},
		{Type: ClaimRole, Value: "admin"},
	}

	issued, err := m.Issue(testUser(), stored, []string{"admin", "auditor"})
	require.NoError(t, err)

	require.Len(t, issued.Claims, 7+3+2)
	assert.Equal(t, stored, []types.Claim(issued.Claims[7:10]))
	assert.Equal(t, []string{"admin", "admin", "auditor"}, issued.Claims.Values(ClaimRole))
	assert.Equal(t, 2, issued.Claims.Count("permission"))
	assert.Equal(t, 1, issued.Claims.Count(ClaimSubject))
}

func TestIssue_StoredClaimsCannotShadowRegisteredMembers(t *testing.T) {
	for _, claimType := range []string{"sub", "jti", "iss", "aud", "exp", "nbf", "iat"} {
		t.Run(claimType, func(t *testing.T) {
			m := newTestManager(t, 30*time.Minute)
			stored := []types.Claim{
				{Type: claimType, Value: "9999999999"},
				{Type: "department", Value: "ops"},
			}

			issued, err := m.Issue(testUser(), stored, nil)
			require.NoError(t, err)

			assert.NotContains(t, issued.Claims.Values(claimType), "9999999999")
			assert.Equal(t, []string{"ops"}, issued.Claims.Values("department"))
			assert.Equal(t, []string{"alice"}, issued.Claims.Values(ClaimSubject))
			assert.Equal(t, []string{issued.ID}, issued.Claims.Values(ClaimTokenID))

			payload := decodePayload(t, issued.Token)
			assert.NotEqual(t, "9999999999", payload[claimType])
			assert.Equal(t, float64(issued.ExpiresAt.Unix()), payload["exp"])

			verified, err := m.Verify(issued.Token)
			require.NoError(t, err)
			assert.Equal(t, "alice", verified.Subject)
			assert.Equal(t, 1, verified.Claims.Count(ClaimSubject))
		})
	}
}

func TestIssue_PayloadEncoding(t *testing.T) {
	m := newTestManager(t, 30*time.Minute)

	issued, err := m.Issue(testUser(), nil, []string{"admin"})
	require.NoError(t, err)

	payload := decodePayload(t, issued.Token)
	assert.Equal(t, "kavach-auth", payload["iss"])
	assert.Equal(t, "kavach-clients", payload["aud"])
	assert.Equal(t, "alice", payload["sub"])
	assert.Equal(t, issued.ID, payload["jti"])
	assert.Equal(t, "admin", payload["role"])
	assert.Equal(t, "", payload["phone_number"])
	assert.Equal(t, []interface{}{"alice@example.com", "alice@example.com"}, payload["email"])
	assert.Equal(t, float64(issued.ExpiresAt.Unix()), payload["exp"])

	header := strings.Split(issued.Token, ".")[0]
	raw, err := base64.RawURLEncoding.DecodeString(header)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, string(raw))
}

func TestIssue_NonIdempotent(t *testing.T) {
	m := newTestManager(t, 30*time.Minute)
	user := testUser()

	first, err := m.Issue(user, nil, nil)
	require.NoError(t, err)
	second, err := m.Issue(user, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestIssue_ExpiryFromLifetime(t *testing.T) {
	m := newTestManager(t, 45*time.Minute)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)
	m.now = func() time.Time { return fixed }

	issued, err := m.Issue(testUser(), nil, nil)
	require.NoError(t, err)
	assert.True(t, fixed.Add(45*time.Minute).Truncate(time.Second).Equal(issued.ExpiresAt))

	m.now = time.Now
	before := time.Now().UTC()
	issued, err = m.Issue(testUser(), nil, nil)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(45*time.Minute), issued.ExpiresAt, time.Second)
}

func TestIssue_NilUser(t *testing.T) {
	m := newTestManager(t, time.Minute)
	_, err := m.Issue(nil, nil, nil)
	assert.Error(t, err)
}

func TestIssue_MissingKey(t *testing.T) {
	m := NewManager(SigningConfig{issuer: "iss", audience: "aud", lifetime: time.Minute})
	_, err := m.Issue(testUser(), nil, nil)
	assert.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	m := newTestManager(t, 30*time.Minute)
	stored := []types.Claim{{Type: "permission", Value: "a"}, {Type: "permission", Value: "b"}}

	issued, err := m.Issue(testUser(), stored, []string{"admin"})
	require.NoError(t, err)

	verified, err := m.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", verified.Subject)
	assert.Equal(t, issued.ID, verified.ID)
	assert.True(t, issued.ExpiresAt.Equal(verified.ExpiresAt))
	assert.Equal(t, []string{"a", "b"}, verified.Claims.Values("permission"))
	assert.Equal(t, []string{"admin"}, verified.Claims.Values(ClaimRole))
	assert.Equal(t, 2, verified.Claims.Count(ClaimEmail))
	assert.ElementsMatch(t, issued.Claims, verified.Claims)
}

func TestVerify_Expired(t *testing.T) {
	m := newTestManager(t, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	issued, err := m.Issue(testUser(), nil, nil)
	require.NoError(t, err)

	_, err = m.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_Rejections(t *testing.T) {
	m := newTestManager(t, time.Hour)
	issued, err := m.Issue(testUser(), nil, nil)
	require.NoError(t, err)

	otherKey, err := NewSigningConfig([]byte("ffffffffffffffffffffffffffffffff"), "kavach-auth", "kavach-clients", time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewSigningConfig(testKey, "someone-else", "kavach-clients", time.Hour)
	require.NoError(t, err)
	otherAudience, err := NewSigningConfig(testKey, "kavach-auth", "another-api", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	tamperedPayload, err := json.Marshal(map[string]interface{}{
		"sub": "mallory", "iss": "kavach-auth", "aud": "kavach-clients", "exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString(tamperedPayload) + "." + parts[2]

	noneToken, err := jwtx.NewWithClaims(jwtx.SigningMethodNone, jwtx.MapClaims{
		"sub": "alice", "iss": "kavach-auth", "aud": "kavach-clients", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwtx.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *Manager
		token   string
	}{
		{name: "wrong key", manager: NewManager(otherKey), token: issued.Token},
		{name: "wrong issuer", manager: NewManager(otherIssuer), token: issued.Token},
		{name: "wrong audience", manager: NewManager(otherAudience), token: issued.Token},
		{name: "tampered payload", manager: m, token: tampered},
		{name: "alg none", manager: m, token: noneToken},
		{name: "empty", manager: m, token: ""},
		{name: "garbage", manager: m, token: "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
