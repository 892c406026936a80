package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Roles a user can hold
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Roles lists every valid role value
var Roles = []string{RoleUser, RoleAdmin}

// PasswordCost is the bcrypt cost used when hashing user passwords
var PasswordCost = bcrypt.DefaultCost

// Password length bounds. bcrypt only ever reads the first 72 bytes
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// ErrPasswordLength is returned by SetPassword for a password outside the length bounds
var ErrPasswordLength = fmt.Errorf("password must be between %d characters and %d bytes long", MinPasswordLength, MaxPasswordLength)

// User is an account of the API. The password is only ever stored as a bcrypt hash
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:'user'" json:"role"`
	Picture      string    `json:"picture"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a random identifier to new users
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// BeforeSave keeps the email normalized and the gravatar picture in sync with it
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	u.Picture = GravatarURL(u.Email)
	return nil
}

// SetPassword hashes plain and stores the hash on the user
func (u *User) SetPassword(plain string) error {
	if utf8.RuneCountInString(plain) < MinPasswordLength || len(plain) > MaxPasswordLength {
		return ErrPasswordLength
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash
func (u *User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Fields is the full public representation of a user. It never contains the password
func (u *User) Fields() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"picture":   u.Picture,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

// ProjectableFields are the keys a client may ask for with ?fields=
var ProjectableFields = []string{"name", "email", "role", "picture", "createdAt", "updatedAt"}

// Project returns id plus the requested fields. Unknown names are ignored,
// and an empty selection yields the full representation
func (u *User) Project(fields []string) map[string]any {
	full := u.Fields()
	if len(fields) == 0 {
		return full
	}

	out := map[string]any{"id": u.ID}
	for _, f := range fields {
		if !isProjectable(f) {
			continue
		}
		out[f] = full[f]
	}
	return out
}

func isProjectable(field string) bool {
	for _, f := range ProjectableFields {
		if f == field {
			return true
		}
	}
	return false
}

// IsValidRole reports whether role is one of Roles
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GravatarURL is the identicon gravatar for email
func GravatarURL(email string) string {
	if email == "" {
		return ""
	}
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return "https://gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}
