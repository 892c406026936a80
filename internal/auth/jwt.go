package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails parsing or claim validation
var ErrInvalidToken = errors.New("invalid token")

// Claims are the custom claims carried by every access token the API issues,
// whether through /auth or the OAuth2 token endpoint
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HMAC access tokens
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager signing with HS256
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of tokens issued by Sign
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Sign issues an access token for user valid for the configured TTL
func (m *TokenManager) Sign(user *models.User) (string, error) {
	return m.SignWith(user, m.now(), m.ttl, "", "")
}

// SignWith issues an access token for user with an explicit issue time and lifetime.
// audience and scope are optional and only set for OAuth2 issued tokens
func (m *TokenManager) SignWith(user *models.User, issuedAt time.Time, ttl time.Duration, audience, scope string) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("cannot generate token: no user ID available")
	}

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}

	claims := Claims{
		UserID: user.ID,
		Role:   role,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and validates its signature, lifetime and required claims
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Only HMAC keys are accepted, whatever the header says
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token missing required 'uid' claim", ErrInvalidToken)
	}
	if !models.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: invalid role '%s'", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
