package controllers

import (
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-user-api/internal/middleware"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/policy"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// supportedGrants are the grants a client may be restricted to
var supportedGrants = map[string]bool{
	"password":           true,
	"client_credentials": true,
	"refresh_token":      true,
}

type ClientController struct {
	clientService services.ClientService
}

func NewClientController(clientService services.ClientService) *ClientController {
	return &ClientController{clientService: clientService}
}

type createClientRequest struct {
	Name        string `json:"name" binding:"required"`
	Domain      string `json:"domain" binding:"omitempty,url"`
	Scopes      string `json:"scopes"`
	GrantTypes  string `json:"grant_types"`
	RedirectURI string `json:"redirect_uri" binding:"omitempty,url"`
}

// CreateClient godoc
// @Summary Create OAuth2 client
// @Description Create a new OAuth2 client owned by the calling admin. The secret is only returned once
// @Tags OAuth2 Clients
// @Accept json
// @Produce json
// @Param client body createClientRequest true "Client details"
// @Success 201 {object} map[string]interface{} "Client created with client_id and client_secret"
// @Failure 400 {object} models.APIError "Invalid request"
// @Failure 401 {object} models.APIError
// @Failure 500 {object} models.APIError "Client creation failed"
// @Security BearerAuth
// @Router /api/v1/clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if err := policy.CanManageClients(identity); err != nil {
		respondError(c, err)
		return
	}

	var req createClientRequest
	if !bindJSON(c, &req) {
		return
	}
	for _, g := range strings.Fields(req.GrantTypes) {
		if !supportedGrants[g] {
			respondParamError(c, "grant_types", "unsupported grant type "+g)
			return
		}
	}

	// Generate client secret
	secret := uuid.New().String()
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	client := &models.OAuthClient{
		ID:          uuid.New().String(),
		Secret:      string(hashedSecret),
		Name:        req.Name,
		Domain:      req.Domain,
		Scopes:      req.Scopes,
		GrantTypes:  req.GrantTypes,
		RedirectURI: req.RedirectURI,
		UserID:      identity.UserID,
	}

	if err := cc.clientService.CreateClient(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}

	log.WithField("client_id", client.ID).Info("OAuth client created")
	c.JSON(http.StatusCreated, gin.H{
		"client_id":     client.ID,
		"client_secret": secret, // Return plain secret only once
		"name":          client.Name,
		"scopes":        client.Scopes,
		"grant_types":   client.GrantTypes,
		"redirect_uri":  client.RedirectURI,
	})
}

// ListClients godoc
// @Summary List OAuth2 clients
// @Description Get all OAuth2 clients owned by the calling admin
// @Tags OAuth2 Clients
// @Produce json
// @Success 200 {array} models.OAuthClient "List of clients"
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/clients [get]
func (cc *ClientController) ListClients(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if err := policy.CanManageClients(identity); err != nil {
		respondError(c, err)
		return
	}

	clients, err := cc.clientService.GetClientsByUserID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// DeleteClient godoc
// @Summary Delete OAuth2 client
// @Description Delete an OAuth2 client owned by the calling admin
// @Tags OAuth2 Clients
// @Param id path string true "Client ID"
// @Success 204 "Client deleted successfully"
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError "Client not found"
// @Security BearerAuth
// @Router /api/v1/clients/{id} [delete]
func (cc *ClientController) DeleteClient(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if err := policy.CanManageClients(identity); err != nil {
		respondError(c, err)
		return
	}

	if err := cc.clientService.DeleteClient(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
