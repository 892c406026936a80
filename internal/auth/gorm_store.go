package auth

import (
	"context"
	"errors"
	"time"

	internalmodels "github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/models"
	"gorm.io/gorm"
)

// GormClientStore implements oauth2.ClientStore over the oauth_clients table
type GormClientStore struct {
	db *gorm.DB
}

func NewGormClientStore(db *gorm.DB) *GormClientStore {
	return &GormClientStore{db: db}
}

func (s *GormClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	var client internalmodels.OAuthClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oauth2errors.ErrInvalidClient
		}
		return nil, err
	}

	// Return our OAuthClient which implements ClientPasswordVerifier
	return &client, nil
}

// GormTokenStore implements oauth2.TokenStore over the oauth_tokens table.
// Lookups that find nothing return a nil TokenInfo so the library reports invalid_grant
type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	token := &internalmodels.OAuthToken{
		ClientID:         info.GetClientID(),
		UserID:           info.GetUserID(),
		AccessToken:      info.GetAccess(),
		RefreshToken:     info.GetRefresh(),
		Code:             info.GetCode(),
		Scopes:           info.GetScope(),
		AccessCreatedAt:  info.GetAccessCreateAt(),
		AccessExpiresIn:  info.GetAccessExpiresIn(),
		RefreshCreatedAt: info.GetRefreshCreateAt(),
		RefreshExpiresIn: info.GetRefreshExpiresIn(),
		ExpiresAt:        expiresAt(info),
	}

	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormTokenStore) RemoveByCode(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Where("code = ?", code).Delete(&internalmodels.OAuthToken{}).Error
}

func (s *GormTokenStore) RemoveByAccess(ctx context.Context, access string) error {
	return s.db.WithContext(ctx).Where("access_token = ?", access).Delete(&internalmodels.OAuthToken{}).Error
}

func (s *GormTokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	return s.db.WithContext(ctx).Where("refresh_token = ?", refresh).Delete(&internalmodels.OAuthToken{}).Error
}

func (s *GormTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	return s.find(ctx, "code = ?", code)
}

func (s *GormTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	return s.find(ctx, "access_token = ?", access)
}

func (s *GormTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	return s.find(ctx, "refresh_token = ?", refresh)
}

func (s *GormTokenStore) find(ctx context.Context, query string, value string) (oauth2.TokenInfo, error) {
	if value == "" {
		return nil, nil
	}

	var token internalmodels.OAuthToken
	if err := s.db.WithContext(ctx).Where(query, value).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &models.Token{
		ClientID:         token.ClientID,
		UserID:           token.UserID,
		Scope:            token.Scopes,
		Code:             token.Code,
		Access:           token.AccessToken,
		AccessCreateAt:   token.AccessCreatedAt,
		AccessExpiresIn:  token.AccessExpiresIn,
		Refresh:          token.RefreshToken,
		RefreshCreateAt:  token.RefreshCreatedAt,
		RefreshExpiresIn: token.RefreshExpiresIn,
	}, nil
}

// expiresAt is the moment the last credential in info stops being usable
func expiresAt(info oauth2.TokenInfo) time.Time {
	exp := info.GetAccessCreateAt().Add(info.GetAccessExpiresIn())
	if info.GetRefresh() != "" && info.GetRefreshExpiresIn() > 0 {
		if refreshExp := info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn()); refreshExp.After(exp) {
			exp = refreshExp
		}
	}
	return exp
}

// PurgeExpired deletes every stored token whose credentials have all expired
func (s *GormTokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&internalmodels.OAuthToken{})
	return result.RowsAffected, result.Error
}
