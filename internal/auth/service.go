package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bookstore-backend/pkg/auth"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"

	minPasswordLength = 8
	maxPasswordLength = 36
	minUsernameLength = 4
	maxUsernameLength = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

// Service defines registration and session lifecycle operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	Users          *users.Repository
	Sessions       sessionManager
	SessionConfig  config.SessionConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	db          txRunner
	users       *users.Repository
	sessions    sessionManager
	sessionCfg  config.SessionConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		db:          params.DB,
		users:       params.Users,
		sessions:    params.Sessions,
		sessionCfg:  params.SessionConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)

	if err := validateRegister(input); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		taken, err := repo.TakenFields(ctx, input.Username, input.Email, input.Phone, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check identity uniqueness")
		}
		if len(taken) > 0 {
			return takenError(taken)
		}

		created, err = repo.Create(ctx, users.CreateUserDTO{
			Username:     input.Username,
			Email:        input.Email,
			Phone:        input.Phone,
			PasswordHash: passwordHash,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, created.ID.String()), "user.registered")
	}
	return users.FromModel(created), nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	token, err := pkgAuth.MintSessionToken(s.sessionCfg, now, pkgAuth.SessionTokenPayload{
		UserID:    user.ID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user.login")
	}
	return &LoginResult{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: now.Add(s.sessionCfg.TTL),
		User:      users.FromModel(user),
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		s.rehash(ctx, user, password)
	}
	return user, nil
}

// rehash upgrades a stored hash to the current argon2 parameters. Failure
// only costs the upgrade, never the login.
func (s *service) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "error": err.Error()}), "auth.rehash_failed")
		}
		return
	}
	user.PasswordHash = hash
}

func validateRegister(input RegisterInput) error {
	details := map[string]string{}
	if n := len([]rune(input.Username)); n < minUsernameLength || n > maxUsernameLength {
		details["username"] = fmt.Sprintf("must be between %d and %d characters", minUsernameLength, maxUsernameLength)
	}
	if input.Email == "" {
		details["email"] = "is required"
	}
	if input.Phone == "" {
		details["phone"] = "is required"
	}
	if n := len(input.Password); n < minPasswordLength || n > maxPasswordLength {
		details["password"] = fmt.Sprintf("must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	if input.Password != input.ConfirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match").
			WithDetails(map[string]string{"confirm_password": "must match password"})
	}
	return nil
}

func takenError(fields []string) error {
	details := make(map[string]string, len(fields))
	for _, f := range fields {
		details[f] = "already in use"
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("user with this %s already exists", fields[0])).
		WithDetails(details)
}
