package services

import (
	"context"
	"testing"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupTestDB(t))

	admin, err := SeedAdmin(ctx, svc, "root@a.com", "123456")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	again, err := SeedAdmin(ctx, svc, "root@a.com", "ignored")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = svc.Authenticate(ctx, "root@a.com", "123456")
	assert.NoError(t, err)
}

func TestSeedAdminRefusesRegularUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupTestDB(t))
	require.NoError(t, svc.CreateUser(ctx, newUser(t, "user", "a@a.com", models.RoleUser)))

	_, err := SeedAdmin(ctx, svc, "a@a.com", "123456")
	assert.Error(t, err)

	_, err = SeedAdmin(ctx, svc, "", "")
	assert.Error(t, err)
}

func TestSeedClientAndClientService(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserService(db)
	clients := NewClientService(db)

	owner, err := SeedAdmin(ctx, users, "root@a.com", "123456")
	require.NoError(t, err)

	client, err := SeedClient(ctx, clients, "web", "s3cret", owner.ID)
	require.NoError(t, err)
	assert.True(t, client.VerifyPassword("s3cret"))

	again, err := SeedClient(ctx, clients, "web", "other", owner.ID)
	require.NoError(t, err)
	assert.Equal(t, client.Secret, again.Secret)

	owned, err := clients.GetClientsByUserID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	assert.ErrorIs(t, clients.DeleteClient(ctx, "web", "someone-else"), ErrClientNotFound)
	require.NoError(t, clients.DeleteClient(ctx, "web", owner.ID))
	_, err = clients.GetClientByID(ctx, "web")
	assert.ErrorIs(t, err, ErrClientNotFound)
}
