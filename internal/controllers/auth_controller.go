package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-user-api/internal/auth"
	"github.com/franciscosanchezn/gin-user-api/internal/middleware"
	"github.com/franciscosanchezn/gin-user-api/internal/policy"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	userService services.UserService
	tokens      *auth.TokenManager
}

func NewAuthController(userService services.UserService, tokens *auth.TokenManager) *AuthController {
	return &AuthController{
		userService: userService,
		tokens:      tokens,
	}
}

// Login godoc
// @Summary Sign in
// @Description Exchange an email and password sent with basic auth for an access token
// @Tags auth
// @Produce json
// @Success 201 {object} map[string]interface{} "token and user"
// @Failure 401 {object} models.APIError
// @Failure 429 {object} models.APIError
// @Security BasicAuth
// @Router /api/v1/auth [post]
func (ac *AuthController) Login(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if err := policy.Authenticated(identity); err != nil {
		respondError(c, err)
		return
	}

	user, err := ac.userService.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ac.tokens.Sign(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int64(ac.tokens.TTL().Seconds()),
		"user":       user.Fields(),
	})
}
