package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
}

// SeedAdmin makes sure an admin account with email exists. An existing account
// is promoted to admin but its password is left untouched
func SeedAdmin(ctx context.Context, users UserService, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("admin email and password are required")
	}

	existing, err := users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			log.WithField("user_id", existing.ID).Info("Admin user already present")
			return existing, nil
		}
		return nil, fmt.Errorf("user %s exists without the admin role", email)
	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	admin := &models.User{Name: "admin", Email: email, Role: models.RoleAdmin}
	if err := admin.SetPassword(password); err != nil {
		return nil, err
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return nil, err
	}
	log.WithField("user_id", admin.ID).Info("Seeded admin user")
	return admin, nil
}

// SeedClient makes sure a first-party OAuth client exists, owned by ownerID
func SeedClient(ctx context.Context, clients ClientService, clientID, secret, ownerID string) (*models.OAuthClient, error) {
	existing, err := clients.GetClientByID(ctx, clientID)
	if err == nil {
		log.WithField("client_id", clientID).Info("OAuth client already present")
		return existing, nil
	}
	if !errors.Is(err, ErrClientNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash client secret: %w", err)
	}
	client := &models.OAuthClient{
		ID:         clientID,
		Secret:     string(hash),
		Name:       "First-party client",
		UserID:     ownerID,
		Scopes:     "read write",
		GrantTypes: "password client_credentials refresh_token",
	}
	if err := clients.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	log.WithField("client_id", clientID).Info("Seeded OAuth client")
	return client, nil
}
