package models

import (
	"time"
)

// OAuthToken persists the tokens issued through the OAuth2 token endpoint
type OAuthToken struct {
	ID               uint   `gorm:"primaryKey"`
	ClientID         string `gorm:"not null;index"`
	UserID           string `gorm:"index"`
	AccessToken      string `gorm:"index"`
	RefreshToken     string `gorm:"index"`
	Code             string `gorm:"index"`
	Scopes           string
	AccessCreatedAt  time.Time
	AccessExpiresIn  time.Duration
	RefreshCreatedAt time.Time
	RefreshExpiresIn time.Duration
	ExpiresAt        time.Time `gorm:"not null;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}
