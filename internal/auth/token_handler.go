package auth

import (
	"net/http"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/gin-gonic/gin"
)

// HandleToken handles the token endpoint for the password, client_credentials and refresh_token grants
// @Summary Token Endpoint
// @Description Obtain an access token. Access tokens are JWTs accepted by every protected route
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Grant type: password, client_credentials or refresh_token"
// @Param client_id formData string true "Client ID"
// @Param client_secret formData string true "Client Secret"
// @Param username formData string false "User email (password grant)"
// @Param password formData string false "User password (password grant)"
// @Param refresh_token formData string false "Refresh token (refresh_token grant)"
// @Param scope formData string false "Requested scope"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	// HandleTokenRequest writes RFC 6749 errors itself; a returned error means the write failed
	if err := o.server.HandleTokenRequest(c.Writer, c.Request); err != nil {
		log.WithError(err).Error("Failed to write token response")
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, models.NewOAuth2Error("server_error", "token request failed"))
		}
	}
}
