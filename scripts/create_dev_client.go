package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/franciscosanchezn/gin-user-api/internal/config"
	"github.com/franciscosanchezn/gin-user-api/internal/database"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	role := flag.String("role", "admin", "User role (admin or user)")
	password := flag.String("password", "dev-password-123", "Password for a newly created owner")
	flag.Parse()

	if !models.IsValidRole(*role) {
		log.Fatalf("Unknown role %q", *role)
	}

	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.InitDatabase(database.FromConfig(conf))
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	ctx := context.Background()
	users := services.NewUserService(db)
	clients := services.NewClientService(db)

	// Determine client credentials based on role
	clientID, clientSecret := "dev-client", "dev-secret-123"
	if *role == models.RoleUser {
		clientID, clientSecret = "user-client", "user-secret-123"
	}

	owner, err := ownerForRole(ctx, users, *role, *password)
	if err != nil {
		log.Fatal("Failed to get user for role:", err)
	}

	client, err := services.SeedClient(ctx, clients, clientID, clientSecret, owner.ID)
	if err != nil {
		log.Fatal("Failed to create client:", err)
	}

	fmt.Printf("Development OAuth client ready for role '%s'\n", *role)
	fmt.Printf("Client ID: %s\n", client.ID)
	fmt.Printf("Client Secret: %s\n", clientSecret)
	fmt.Printf("User: %s (ID: %s)\n", owner.Email, owner.ID)
	fmt.Println("\nUse these credentials for testing:")
	fmt.Printf("curl -X POST http://localhost:%d/oauth/token \\\n", conf.Port)
	fmt.Printf("  -d 'grant_type=client_credentials' \\\n")
	fmt.Printf("  -d 'client_id=%s' \\\n", client.ID)
	fmt.Printf("  -d 'client_secret=%s'\n", clientSecret)
}

// ownerForRole gets or creates the user the client acts as
func ownerForRole(ctx context.Context, users services.UserService, role, password string) (*models.User, error) {
	email := fmt.Sprintf("%s@example.com", role)

	existing, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		fmt.Printf("Found existing user: %s (ID: %s, Role: %s)\n", existing.Email, existing.ID, existing.Role)
		return existing, nil
	}
	if !errors.Is(err, services.ErrUserNotFound) {
		return nil, err
	}

	user := &models.User{
		Email: email,
		Name:  fmt.Sprintf("%s User", role),
		Role:  role,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	fmt.Printf("Created new user: %s (ID: %s, Role: %s)\n", user.Email, user.ID, user.Role)
	return user, nil
}
