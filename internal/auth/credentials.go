package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-user-api/internal/policy"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	// ErrNoCredentials means the request carried nothing the resolver understands
	ErrNoCredentials = errors.New("no credentials")
	// ErrBadCredentials means credentials were present but did not check out
	ErrBadCredentials = errors.New("bad credentials")
)

// Resolver turns the credentials of a request into an Identity
type Resolver interface {
	Resolve(c *gin.Context) (*policy.Identity, error)
}

// TokenCredential resolves bearer tokens. The token is read from the access_token
// query parameter, the Authorization header or the access_token field of a JSON body.
// The role is always taken from the stored user, not from the token
type TokenCredential struct {
	Tokens *TokenManager
	Users  services.UserService
}

func (r TokenCredential) Resolve(c *gin.Context) (*policy.Identity, error) {
	raw := extractToken(c)
	if raw == "" {
		return nil, ErrNoCredentials
	}

	claims, err := r.Tokens.Verify(raw)
	if err != nil {
		return nil, ErrBadCredentials
	}

	user, err := r.Users.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	return &policy.Identity{UserID: user.ID, Role: user.Role, Method: policy.MethodToken}, nil
}

// PasswordCredential resolves HTTP basic auth carrying an email and password
type PasswordCredential struct {
	Users services.UserService
}

func (r PasswordCredential) Resolve(c *gin.Context) (*policy.Identity, error) {
	email, password, ok := c.Request.BasicAuth()
	if !ok {
		return nil, ErrNoCredentials
	}

	user, err := r.Users.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	return &policy.Identity{UserID: user.ID, Role: user.Role, Method: policy.MethodPassword}, nil
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
}

func extractToken(c *gin.Context) string {
	if token := c.Query("access_token"); token != "" {
		return token
	}

	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if hasJSONBody(c.Request) {
		// ShouldBindBodyWith caches the body so handlers can bind it again
		var body tokenBody
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
			return body.AccessToken
		}
	}
	return ""
}

func hasJSONBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return false
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), binding.MIMEJSON)
}
