package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/franciscosanchezn/gin-user-api/internal/middleware"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/policy"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
)

// UserController handles HTTP requests related to users
type UserController interface {
	// ListUsers retrieves a page of users (admin only)
	ListUsers(c *gin.Context)
	// GetMe retrieves the authenticated user
	GetMe(c *gin.Context)
	// GetUser retrieves a user by its ID
	GetUser(c *gin.Context)
	// CreateUser registers a new user
	CreateUser(c *gin.Context)
	// UpdateMe updates the authenticated user
	UpdateMe(c *gin.Context)
	// UpdateUser updates a user by its ID
	UpdateUser(c *gin.Context)
	// UpdateMyPassword changes the password of the user authenticated by basic auth
	UpdateMyPassword(c *gin.Context)
	// UpdatePassword changes the password of a user by its ID
	UpdatePassword(c *gin.Context)
	// DeleteUser deletes a user by its ID (admin only)
	DeleteUser(c *gin.Context)
}

// UserControllerConfig holds the listing limits and registration rules
type UserControllerConfig struct {
	DefaultPageSize   int
	MaxPageSize       int
	AllowRoleOnSignup bool
}

type userController struct {
	users services.UserService
	cfg   UserControllerConfig
}

// NewUserController creates a new instance of UserController
func NewUserController(users services.UserService, cfg UserControllerConfig) UserController {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = services.DefaultLimit
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &userController{users: users, cfg: cfg}
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

type updateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// ListUsers godoc
// @Summary List users
// @Description Get a page of users. Admin only
// @Tags users
// @Produce json
// @Param page query int false "Page number, starting at 1"
// @Param limit query int false "Page size"
// @Param q query string false "Case-insensitive search on name"
// @Param fields query string false "Comma-separated fields to return besides id"
// @Param sort query string false "name, email or createdAt, prefix with - for descending"
// @Param access_token query string false "Access token"
// @Success 200 {array} models.User
// @Header 200 {integer} X-Total-Count "Number of matching users"
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users [get]
func (uc *userController) ListUsers(c *gin.Context) {
	if err := policy.CanListUsers(middleware.CurrentIdentity(c)); err != nil {
		respondError(c, err)
		return
	}

	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	opts := services.ListOptions{
		Page:  page,
		Limit: limit,
		Query: c.Query("q"),
		Sort:  c.Query("sort"),
	}.Normalize(uc.cfg.DefaultPageSize, uc.cfg.MaxPageSize)
	if err := opts.ValidateSort(); err != nil {
		respondError(c, err)
		return
	}

	users, total, err := uc.users.ListUsers(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	fields := parseFields(c.Query("fields"))
	out := make([]map[string]any, 0, len(users))
	for i := range users {
		out = append(out, users[i].Project(fields))
	}

	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, out)
}

// GetMe godoc
// @Summary Get current user
// @Description Get the user the access token belongs to
// @Tags users
// @Produce json
// @Param access_token query string false "Access token"
// @Success 200 {object} models.User
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/me [get]
func (uc *userController) GetMe(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if err := policy.Authenticated(identity); err != nil {
		respondError(c, err)
		return
	}

	user, err := uc.users.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Fields())
}

// GetUser godoc
// @Summary Get user by ID
// @Description Get a single user by its ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.APIError
// @Router /api/v1/users/{id} [get]
func (uc *userController) GetUser(c *gin.Context) {
	user, err := uc.users.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Fields())
}

// CreateUser godoc
// @Summary Register user
// @Description Create a new user. role defaults to user
// @Tags users
// @Accept json
// @Produce json
// @Param user body createUserRequest true "User to create"
// @Success 201 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Router /api/v1/users [post]
func (uc *userController) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondParamError(c, "name", "name is required")
		return
	}
	if err := policy.CanRegisterWithRole(middleware.CurrentIdentity(c), req.Role, uc.cfg.AllowRoleOnSignup); err != nil {
		respondParamError(c, "role", "role may only be set by an admin")
		return
	}

	user := &models.User{
		Name:  name,
		Email: req.Email,
		Role:  req.Role,
	}
	if err := user.SetPassword(req.Password); err != nil {
		respondError(c, err)
		return
	}

	if err := uc.users.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	log.WithField("user_id", user.ID).Info("User registered")
	c.JSON(http.StatusCreated, user.Fields())
}

// UpdateMe godoc
// @Summary Update current user
// @Description Update name and/or email of the authenticated user
// @Tags users
// @Accept json
// @Produce json
// @Param user body updateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/me [put]
func (uc *userController) UpdateMe(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if err := policy.Authenticated(identity); err != nil {
		respondError(c, err)
		return
	}
	uc.update(c, identity.UserID)
}

// UpdateUser godoc
// @Summary Update user
// @Description Update name and/or email of a user. Allowed for the user themselves and admins
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body updateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/{id} [put]
func (uc *userController) UpdateUser(c *gin.Context) {
	id := c.Param("id")
	if err := policy.CanUpdateUser(middleware.CurrentIdentity(c), id); err != nil {
		respondError(c, err)
		return
	}
	uc.update(c, id)
}

func (uc *userController) update(c *gin.Context, id string) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		respondParamError(c, "name", "name must not be blank")
		return
	}

	user, err := uc.users.UpdateUser(c.Request.Context(), id, services.UserUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Fields())
}

// UpdateMyPassword godoc
// @Summary Change own password
// @Description Change the password of the user authenticated with basic auth. Tokens are not accepted
// @Tags users
// @Accept json
// @Produce json
// @Param body body passwordRequest true "New password"
// @Success 200 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Security BasicAuth
// @Router /api/v1/users/me/password [put]
func (uc *userController) UpdateMyPassword(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		respondError(c, policy.ErrUnauthorized)
		return
	}
	uc.changePassword(c, identity, identity.UserID)
}

// UpdatePassword godoc
// @Summary Change password
// @Description Change the password of a user. Only the user themselves, authenticated with basic auth
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body passwordRequest true "New password"
// @Success 200 {object} models.User
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BasicAuth
// @Router /api/v1/users/{id}/password [put]
func (uc *userController) UpdatePassword(c *gin.Context) {
	target, err := uc.users.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	uc.changePassword(c, middleware.CurrentIdentity(c), target.ID)
}

func (uc *userController) changePassword(c *gin.Context, identity *policy.Identity, targetID string) {
	if err := policy.CanChangePassword(identity, targetID); err != nil {
		respondError(c, err)
		return
	}

	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.UpdatePassword(c.Request.Context(), targetID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithField("user_id", user.ID).Info("Password changed")
	c.JSON(http.StatusOK, user.Fields())
}

// DeleteUser godoc
// @Summary Delete user
// @Description Delete a user by its ID. Admin only
// @Tags users
// @Param id path string true "User ID"
// @Success 204 "User deleted successfully"
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/{id} [delete]
func (uc *userController) DeleteUser(c *gin.Context) {
	if err := policy.CanDeleteUser(middleware.CurrentIdentity(c)); err != nil {
		respondError(c, err)
		return
	}

	id := c.Param("id")
	if err := uc.users.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	log.WithField("user_id", id).Info("User deleted")
	c.Status(http.StatusNoContent)
}

// queryInt reads an optional positive integer query parameter, answering 400 when it is malformed
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		respondParamError(c, key, key+" must be a positive integer")
		return 0, false
	}
	return v, true
}

// parseFields splits a comma-separated projection, dropping blanks
func parseFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
