package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/google/uuid"
)

// JWTAccessGenerate issues OAuth2 access tokens with the same claims as /auth,
// so tokens from either source work with every protected route
type JWTAccessGenerate struct {
	tokens *TokenManager
	users  services.UserService
}

// NewJWTAccessGenerate creates an oauth2.AccessGenerate backed by tokens
func NewJWTAccessGenerate(tokens *TokenManager, users services.UserService) *JWTAccessGenerate {
	return &JWTAccessGenerate{tokens: tokens, users: users}
}

// Token generates a JWT access token and, when asked, an opaque refresh token.
// This method is called by the OAuth2 library to generate access tokens
func (g *JWTAccessGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	// For client_credentials flow, GenerateBasic.UserID is empty, so the token acts as the client's owner
	userID := data.UserID
	if userID == "" {
		userID = data.Client.GetUserID()
	}
	if userID == "" {
		return "", "", fmt.Errorf("cannot generate token: no user ID available")
	}

	// The role is read from the store so a token never carries a stale or forged role
	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch user: %w", err)
	}

	ti := data.TokenInfo
	access, err := g.tokens.SignWith(user, ti.GetAccessCreateAt(), ti.GetAccessExpiresIn(), data.Client.GetID(), ti.GetScope())
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if isGenRefresh {
		sum := uuid.NewSHA1(uuid.New(), []byte(access))
		refresh = strings.TrimRight(base64.URLEncoding.EncodeToString(sum[:]), "=")
	}
	return access, refresh, nil
}
