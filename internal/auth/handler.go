package auth

import (
	"errors"
	"net/http"

	apperrors "github.com/Gkemhcs/kavach-auth/internal/errors"
	"github.com/Gkemhcs/kavach-auth/internal/middleware"
	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/Gkemhcs/kavach-auth/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests related to accounts.
type AuthHandler struct {
	service *AuthService
	logger  *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler with the given service and logger.
func NewAuthHandler(service *AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterAuthRoutes mounts the account routes. limiter guards the public
// endpoints, jwtMiddleware the ones that need a token.
func RegisterAuthRoutes(handler *AuthHandler, routerGroup *gin.RouterGroup, jwtMiddleware, limiter gin.HandlerFunc) {
	accountGroup := routerGroup.Group("/account")
	{
		accountGroup.POST("/login", limiter, handler.Login)
		accountGroup.POST("/register", limiter, handler.Register)
		accountGroup.GET("/me", jwtMiddleware, handler.Me)
	}
}

func respondAPIError(c *gin.Context, apiErr *apperrors.APIError) {
	utils.RespondError(c, apiErr.Status, apiErr.Code, apiErr.Message)
}

// Login handles POST /account/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAPIError(c, apperrors.ErrInvalidBody)
		return
	}

	issued, err := h.service.Login(c.Request.Context(), types.Credentials{
		UserName: req.UserName,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			respondAPIError(c, apperrors.ErrInvalidCredentials)
			return
		}
		h.logger.Error("Login error: ", err)
		respondAPIError(c, apperrors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: LoginSucceededMessage,
		Success: true,
		Token:   issued.Token,
	})
}

// Register handles POST /account/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAPIError(c, apperrors.ErrInvalidBody)
		return
	}

	if _, err := h.service.Register(c.Request.Context(), req); err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			utils.RespondValidationError(c, apperrors.ErrValidationFailed.Status, apperrors.ErrValidationFailed.Code, verr.Errors)
			return
		}
		h.logger.Error("Register error: ", err)
		respondAPIError(c, apperrors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, RegisterResponse{Message: "", Success: true})
}

// Me handles GET /account/me and echoes the verified token.
func (h *AuthHandler) Me(c *gin.Context) {
	token, ok := middleware.VerifiedToken(c)
	if !ok {
		respondAPIError(c, apperrors.ErrMissingToken)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, token)
}
