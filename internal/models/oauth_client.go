package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OAuthClient is a registered OAuth2 client. Secret holds a bcrypt hash
// and UserID is the user the client acts as for client_credentials grants
type OAuthClient struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"client_id"`
	Secret      string    `gorm:"not null" json:"-"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain"`
	UserID      string    `gorm:"index;type:varchar(36)" json:"user_id"`
	Scopes      string    `json:"scopes"`      // Space-separated list of allowed scopes
	GrantTypes  string    `json:"grant_types"` // Space-separated list: "password client_credentials refresh_token"
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}

// GetID implements oauth2.ClientInfo
func (c *OAuthClient) GetID() string { return c.ID }

// GetSecret implements oauth2.ClientInfo
func (c *OAuthClient) GetSecret() string { return c.Secret }

// GetDomain implements oauth2.ClientInfo
func (c *OAuthClient) GetDomain() string { return c.Domain }

// IsPublic implements oauth2.ClientInfo. Every client here is confidential
func (c *OAuthClient) IsPublic() bool { return false }

// GetUserID implements oauth2.ClientInfo
func (c *OAuthClient) GetUserID() string { return c.UserID }

// VerifyPassword implements oauth2.ClientPasswordVerifier against the bcrypt hash
func (c *OAuthClient) VerifyPassword(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(secret)) == nil
}

// AllowsGrant reports whether grant is listed in GrantTypes.
// An empty list allows every grant the server enables
func (c *OAuthClient) AllowsGrant(grant string) bool {
	if strings.TrimSpace(c.GrantTypes) == "" {
		return true
	}
	for _, g := range strings.Fields(c.GrantTypes) {
		if g == grant {
			return true
		}
	}
	return false
}
