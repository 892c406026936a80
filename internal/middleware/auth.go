package middleware

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/gin-user-api/internal/auth"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/policy"
	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware in this package
const (
	CtxIdentity  = "identity"
	CtxUserID    = "userID"
	CtxUserRole  = "userRole"
	CtxRequestID = "request_id"
)

// FailureRecorder is notified of every rejected authentication attempt
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Authenticate resolves the request credentials with resolver and aborts with 401
// when they are missing or invalid. Every failure gets the same response body
func Authenticate(resolver auth.Resolver, recorder FailureRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c)
		if err != nil {
			reason := "invalid_credentials"
			switch {
			case errors.Is(err, auth.ErrNoCredentials):
				reason = "missing_credentials"
			case !errors.Is(err, auth.ErrBadCredentials):
				log.WithError(err).Error("Credential resolution failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					models.NewAPIError(models.ErrInternalServer, "Internal server error"))
				return
			}
			if recorder != nil {
				recorder.RecordAuthFailure(reason)
			}
			AbortUnauthorized(c)
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuthenticate resolves credentials when they are valid and otherwise lets
// the request through anonymously
func OptionalAuthenticate(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, err := resolver.Resolve(c); err == nil {
			setIdentity(c, identity)
		}
		c.Next()
	}
}

// RequireRole is a middleware that checks if the user has the required role.
// A missing or different role is reported exactly like a missing credential
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil || identity.Role != requiredRole {
			AbortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity resolved for the request, or nil for anonymous requests
func CurrentIdentity(c *gin.Context) *policy.Identity {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*policy.Identity)
	return identity
}

func setIdentity(c *gin.Context, identity *policy.Identity) {
	c.Set(CtxIdentity, identity)
	c.Set(CtxUserID, identity.UserID)
	c.Set(CtxUserRole, identity.Role)
}

// AbortUnauthorized stops the request with the single 401 body used for every authentication failure
func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "Unauthorized"))
}
