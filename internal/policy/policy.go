// Package policy holds the authorization rules of the user API. The rules only
// look at the requesting Identity and the target user id, never at HTTP details.
package policy

import (
	"errors"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
)

// ErrUnauthorized is returned by every rule that denies access. Callers must not
// reveal which check failed
var ErrUnauthorized = errors.New("unauthorized")

// ErrRoleNotAllowed is returned when a registration asks for a role the caller may not grant
var ErrRoleNotAllowed = errors.New("role not allowed")

// Method is how an Identity proved who it is
type Method string

const (
	MethodToken    Method = "token"
	MethodPassword Method = "password"
)

// Identity is the authenticated requester
type Identity struct {
	UserID string
	Role   string
	Method Method
}

// IsAdmin reports whether the identity holds the admin role
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// Is reports whether the identity is the user with the given id
func (i *Identity) Is(userID string) bool {
	return i != nil && i.UserID != "" && i.UserID == userID
}

// Authenticated allows any resolved identity
func Authenticated(id *Identity) error {
	if id == nil || id.UserID == "" {
		return ErrUnauthorized
	}
	return nil
}

// CanListUsers allows admins only
func CanListUsers(id *Identity) error {
	return requireAdmin(id)
}

// CanUpdateUser allows admins and the user themselves
func CanUpdateUser(id *Identity, targetID string) error {
	if err := Authenticated(id); err != nil {
		return err
	}
	if id.IsAdmin() || id.Is(targetID) {
		return nil
	}
	return ErrUnauthorized
}

// CanChangePassword allows only the user themselves, and only after proving
// the current password. Admin rights and tokens are not enough
func CanChangePassword(id *Identity, targetID string) error {
	if err := Authenticated(id); err != nil {
		return err
	}
	if id.Method != MethodPassword || !id.Is(targetID) {
		return ErrUnauthorized
	}
	return nil
}

// CanDeleteUser allows admins only
func CanDeleteUser(id *Identity) error {
	return requireAdmin(id)
}

// CanManageClients allows admins only
func CanManageClients(id *Identity) error {
	return requireAdmin(id)
}

// CanRegisterWithRole decides whether a registration may set role. With
// allowOnSignup any valid role is accepted; otherwise only admins may grant
// anything other than the default role. id is nil for anonymous sign-ups
func CanRegisterWithRole(id *Identity, role string, allowOnSignup bool) error {
	if role == "" || role == models.RoleUser || allowOnSignup || id.IsAdmin() {
		return nil
	}
	return ErrRoleNotAllowed
}

func requireAdmin(id *Identity) error {
	if err := Authenticated(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}
