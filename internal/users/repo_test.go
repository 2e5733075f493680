package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNormalizesEmail(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{
		Username:     " reader ",
		Email:        " Reader@Example.COM ",
		Phone:        "+15550001111",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)
	assert.Equal(t, "reader@example.com", user.Email)

	found, err := repo.FindByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.False(t, found.IsVerified)
}

func TestTakenFields(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	existing := dbtest.SeedUser(t, conn, "alice")

	taken, err := repo.TakenFields(ctx, "alice", "alice@example.com", "+19999999999", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "username"}, taken)

	taken, err = repo.TakenFields(ctx, "alice", "alice@example.com", existing.Phone, &existing.ID)
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestVerificationCodeLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := dbtest.SeedUser(t, conn, "bob")
	expires := time.Now().UTC().Add(15 * time.Minute)
	require.NoError(t, repo.SetVerificationCode(ctx, user.ID, "123456", expires))

	loaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.VerificationCode)
	assert.Equal(t, "123456", *loaded.VerificationCode)
	require.NotNil(t, loaded.VerificationCodeExpiresAt)
	assert.WithinDuration(t, expires, *loaded.VerificationCodeExpiresAt, time.Second)

	require.NoError(t, repo.MarkVerified(ctx, user.ID))
	loaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsVerified)
	assert.Nil(t, loaded.VerificationCode)
	assert.Nil(t, loaded.VerificationCodeExpiresAt)
}

func TestExistsAndDelete(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := dbtest.SeedUser(t, conn, "carol")
	ok, err := repo.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, user.ID))
	ok, err = repo.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, repo.Delete(ctx, uuid.New()))
}
