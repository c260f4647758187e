package middleware

import (
	"errors"
	"strings"

	"github.com/Gkemhcs/kavach-auth/internal/auth/jwt"
	apperrors "github.com/Gkemhcs/kavach-auth/internal/errors"
	"github.com/Gkemhcs/kavach-auth/internal/utils"
	"github.com/gin-gonic/gin"
)

// Context keys populated by JWTAuthMiddleware.
const (
	ContextKeyToken    = "token"
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyTokenID  = "token_id"
)

// JWTAuthMiddleware rejects requests without a valid bearer token and stores the verified token in the context.
func JWTAuthMiddleware(jwter *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			utils.RespondError(c, apperrors.ErrMissingToken.Status, apperrors.ErrMissingToken.Code, apperrors.ErrMissingToken.Message)
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		verified, err := jwter.Verify(tokenStr)
		if err != nil {
			apiErr := apperrors.ErrInvalidToken
			if errors.Is(err, jwt.ErrExpiredToken) {
				apiErr = apperrors.ErrExpiredToken
			}
			utils.RespondError(c, apiErr.Status, apiErr.Code, apiErr.Message)
			return
		}

		sid, _ := verified.Claims.First(jwt.ClaimSID)
		c.Set(ContextKeyToken, verified)
		c.Set(ContextKeyUserID, sid)
		c.Set(ContextKeyUsername, verified.Subject)
		c.Set(ContextKeyTokenID, verified.ID)
		c.Next()
	}
}

// VerifiedToken returns the token stored by JWTAuthMiddleware, if any.
func VerifiedToken(c *gin.Context) (*jwt.VerifiedToken, bool) {
	v, ok := c.Get(ContextKeyToken)
	if !ok {
		return nil, false
	}
	token, ok := v.(*jwt.VerifiedToken)
	return token, ok
}
