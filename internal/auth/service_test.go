package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/dbtest"
	"github.com/angelmondragon/bookstore-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bookstore-backend/pkg/auth"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memorySessions struct {
	mu      sync.Mutex
	entries map[string]uuid.UUID
	fail    error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{entries: map[string]uuid.UUID{}}
}

func (m *memorySessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.entries[id] = userID
	return id, nil
}

func (m *memorySessions) Revoke(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

func (m *memorySessions) has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[sessionID]
	return ok
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "bookstore-test",
		TTL:        time.Hour,
		CookieName: "bookstore_session",
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newAuthService(t *testing.T) (Service, *memorySessions, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	sessions := newMemorySessions()
	svc, err := NewService(ServiceParams{
		DB:             client,
		Users:          users.NewRepository(conn),
		Sessions:       sessions,
		SessionConfig:  testSessionConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	require.NoError(t, err)
	return svc, sessions, conn
}

func registerInput() RegisterInput {
	return RegisterInput{
		Username:        "u1_reader",
		Email:           "E1@x.com",
		Phone:           "+15551234567",
		Password:        "secretpw",
		ConfirmPassword: "secretpw",
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	svc, _, _ := newAuthService(t)

	user, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "e1@x.com", user.Email)
	assert.False(t, user.IsVerified)
}

func TestRegisterRejectsTakenIdentity(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, "user with this email already exists", pkgerrors.As(err).Message())

	other := registerInput()
	other.Email = "other@x.com"
	other.Username = "someone_else"
	_, err = svc.Register(ctx, other)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "phone")
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	cases := map[string]func(*RegisterInput){
		"short username":    func(in *RegisterInput) { in.Username = "abc" },
		"short password":    func(in *RegisterInput) { in.Password, in.ConfirmPassword = "short", "short" },
		"password mismatch": func(in *RegisterInput) { in.ConfirmPassword = "different" },
		"missing phone":     func(in *RegisterInput) { in.Phone = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := registerInput()
			mutate(&input)
			_, err := svc.Register(ctx, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestLoginIssuesSessionToken(t *testing.T) {
	svc, sessions, _ := newAuthService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "e1@x.com", Password: "secretpw"})
	require.NoError(t, err)
	require.NotNil(t, result.User.LastLoginAt)
	assert.True(t, sessions.has(result.SessionID))

	claims, err := pkgAuth.ParseSessionToken(testSessionConfig(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, result.SessionID, claims.SessionID())

	require.NoError(t, svc.Logout(ctx, result.SessionID))
	assert.False(t, sessions.has(result.SessionID))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	for _, input := range []LoginInput{
		{Email: "e1@x.com", Password: "wrongpass"},
		{Email: "nobody@x.com", Password: "secretpw"},
		{Email: "", Password: ""},
	} {
		_, err := svc.Login(ctx, input)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
		assert.Equal(t, invalidCredentialsMessage, pkgerrors.As(err).Message())
	}
}

func TestLoginSessionStoreFailure(t *testing.T) {
	svc, sessions, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	sessions.fail = errors.New("redis down")
	_, err = svc.Login(ctx, LoginInput{Email: "e1@x.com", Password: "secretpw"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	svc, _, conn := newAuthService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	stronger := testPasswordConfig()
	stronger.ArgonTime = 2
	upgraded, err := NewService(ServiceParams{
		DB:             db.NewFromGorm(conn),
		Users:          users.NewRepository(conn),
		Sessions:       newMemorySessions(),
		SessionConfig:  testSessionConfig(),
		PasswordConfig: stronger,
	})
	require.NoError(t, err)

	_, err = upgraded.Login(ctx, LoginInput{Email: "e1@x.com", Password: "secretpw"})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", registered.ID).Error)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, stronger))
	ok, err := security.VerifyPassword("secretpw", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
