package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gkemhcs/kavach-auth/internal/auth/jwt"
	"github.com/Gkemhcs/kavach-auth/internal/metrics"
	"github.com/Gkemhcs/kavach-auth/internal/middleware"
	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(svc *AuthService) *gin.Engine {
	router := gin.New()
	api := router.Group("/api")
	handler := NewAuthHandler(svc, testLogger())
	noLimit := func(c *gin.Context) { c.Next() }
	RegisterAuthRoutes(handler, api, middleware.JWTAuthMiddleware(svc.jwter), noLimit)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginHandler_Success(t *testing.T) {
	svc, store := newMemoryService(t)
	seedAlice(t, store)
	router := setupTestRouter(svc)

	rec := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "alice", Password: "Secr3t!"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Login Successfully", resp.Message)

	verified, err := svc.jwter.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", verified.Subject)
	assert.Equal(t, 1, verified.Claims.Count(jwt.ClaimSubject))
	assert.Equal(t, []string{"admin"}, verified.Claims.Values(jwt.ClaimRole))
}

func TestLoginHandler_FailuresAreIdentical(t *testing.T) {
	svc, store := newMemoryService(t)
	seedAlice(t, store)
	router := setupTestRouter(svc)

	wrong := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "alice", Password: "wrong"})
	nobody := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "nobody", Password: "x"})

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, wrong.Code, nobody.Code)
	assert.JSONEq(t, `{"success":false,"error_code":"invalid_credentials","error_msg":"Invalid username/password"}`, wrong.Body.String())
	assert.Equal(t, wrong.Body.String(), nobody.Body.String())
}

func TestLoginHandler_MalformedBody(t *testing.T) {
	svc, _ := newMemoryService(t)
	router := setupTestRouter(svc)

	for _, body := range []string{`{"username":`, `not json`} {
		rec := postJSON(t, router, "/api/account/login", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "invalid_body_format")
	}
}

func TestLoginHandler_MissingFieldsAreBadCredentials(t *testing.T) {
	svc, store := newMemoryService(t)
	seedAlice(t, store)
	router := setupTestRouter(svc)

	wrong := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "alice", Password: "wrong"})
	for _, body := range []string{`{"username":"alice"}`, `{"username":"alice","password":""}`, `{}`} {
		rec := postJSON(t, router, "/api/account/login", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, wrong.Body.String(), rec.Body.String(), body)
	}
}

func TestLoginHandler_StoreFault(t *testing.T) {
	store := new(MockStore)
	store.On("FindByUsername", mock.Anything, "alice").Return(nil, errors.New("db down"))
	svc := NewAuthService(store, testManager(t), metrics.Nop{}, testLogger())
	router := setupTestRouter(svc)

	rec := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "alice", Password: "Secr3t!"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error_code":"internal_error","error_msg":"Internal server error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestRegisterHandler(t *testing.T) {
	svc, _ := newMemoryService(t)
	router := setupTestRouter(svc)

	req := RegisterRequest{UserName: "alice", Email: "alice@example.com", Password: "Secr3t!"}

	rec := postJSON(t, router, "/api/account/register", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"","success":true}`, rec.Body.String())

	rec = postJSON(t, router, "/api/account/register", req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Success   bool               `json:"success"`
		ErrorCode string             `json:"error_code"`
		Errors    []types.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "validation_failed", resp.ErrorCode)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, types.CodeDuplicateUserName, resp.Errors[0].Code)
	assert.Equal(t, "username", resp.Errors[0].Field)

	login := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "alice", Password: "Secr3t!"})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestRegisterHandler_ReportsEveryFailure(t *testing.T) {
	svc, _ := newMemoryService(t)
	router := setupTestRouter(svc)

	rec := postJSON(t, router, "/api/account/register", RegisterRequest{UserName: "x", Email: "nope", Password: "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Errors []types.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	var got []string
	for _, fe := range resp.Errors {
		got = append(got, fe.Code)
	}
	assert.Contains(t, got, types.CodeInvalidUserName)
	assert.Contains(t, got, types.CodeInvalidEmail)
	assert.Contains(t, got, types.CodePasswordTooShort)
}

func TestRegisterHandler_MalformedBody(t *testing.T) {
	svc, _ := newMemoryService(t)
	router := setupTestRouter(svc)

	rec := postJSON(t, router, "/api/account/register", `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMeHandler(t *testing.T) {
	svc, store := newMemoryService(t)
	alice := seedAlice(t, store)
	router := setupTestRouter(svc)

	login := postJSON(t, router, "/api/account/login", LoginRequest{UserName: "alice", Password: "Secr3t!"})
	require.Equal(t, http.StatusOK, login.Code)
	var loginResp LoginResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))

	req := httptest.NewRequest(http.MethodGet, "/api/account/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool               `json:"success"`
		Data    jwt.VerifiedToken `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "alice", resp.Data.Subject)
	assert.Equal(t, "kavach-auth", resp.Data.Issuer)
	assert.Equal(t, []string{alice.ID}, resp.Data.Claims.Values(jwt.ClaimSID))

	req = httptest.NewRequest(http.MethodGet, "/api/account/me", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
