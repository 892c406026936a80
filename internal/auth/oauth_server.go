package auth

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/manage"
	"github.com/go-oauth2/oauth2/v4/server"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
}

// RefreshTokenTTL is how long a refresh token issued by the password grant stays valid
const RefreshTokenTTL = 7 * 24 * time.Hour

// OAuthService wraps the OAuth2 token server of the API. It supports the
// password, client_credentials and refresh_token grants
type OAuthService struct {
	server  *server.Server
	clients *GormClientStore
	tokens  *GormTokenStore
	users   services.UserService
}

func NewOAuthService(db *gorm.DB, users services.UserService, tokens *TokenManager) *OAuthService {
	manager := manage.NewDefaultManager()
	manager.SetPasswordTokenCfg(&manage.Config{
		AccessTokenExp:    tokens.TTL(),
		RefreshTokenExp:   RefreshTokenTTL,
		IsGenerateRefresh: true,
	})
	manager.SetClientTokenCfg(&manage.Config{AccessTokenExp: tokens.TTL()})
	manager.SetRefreshTokenCfg(manage.DefaultRefreshTokenCfg)

	// Access tokens are JWTs carrying uid and role
	manager.MapAccessGenerate(NewJWTAccessGenerate(tokens, users))

	tokenStore := NewGormTokenStore(db)
	manager.MapTokenStorage(tokenStore)

	clientStore := NewGormClientStore(db)
	manager.MapClientStorage(clientStore)

	o := &OAuthService{
		clients: clientStore,
		tokens:  tokenStore,
		users:   users,
	}

	srv := server.NewDefaultServer(manager)
	srv.SetAllowedGrantType(oauth2.PasswordCredentials, oauth2.ClientCredentials, oauth2.Refreshing)
	srv.SetClientInfoHandler(server.ClientFormHandler)
	srv.SetClientAuthorizedHandler(o.clientAuthorized)
	srv.SetPasswordAuthorizationHandler(o.authorizePassword)
	srv.SetInternalErrorHandler(func(err error) (re *oauth2errors.Response) {
		log.WithError(err).Error("OAuth2 internal error")
		return
	})

	o.server = srv
	return o
}

func (o *OAuthService) GetServer() *server.Server {
	return o.server
}

// TokenStore exposes the token storage, mainly for housekeeping
func (o *OAuthService) TokenStore() *GormTokenStore {
	return o.tokens
}

// authorizePassword checks the resource owner credentials of a password grant.
// An empty user id makes the library answer invalid_grant
func (o *OAuthService) authorizePassword(ctx context.Context, clientID, username, password string) (string, error) {
	user, err := o.users.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.WithField("client_id", clientID).Warn("Password grant rejected")
			return "", nil
		}
		return "", err
	}
	return user.ID, nil
}

// clientAuthorized restricts each client to the grants listed on it
func (o *OAuthService) clientAuthorized(clientID string, grant oauth2.GrantType) (bool, error) {
	info, err := o.clients.GetByID(context.Background(), clientID)
	if err != nil {
		if errors.Is(err, oauth2errors.ErrInvalidClient) {
			return false, nil
		}
		return false, err
	}
	client, ok := info.(*models.OAuthClient)
	if !ok {
		return false, nil
	}
	return client.AllowsGrant(string(grant)), nil
}
