package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/internal/reviews"
	"github.com/angelmondragon/bookstore-backend/internal/users"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileService manages the authenticated user's own account.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*users.UserDTO, error)
	Delete(ctx context.Context, userID uuid.UUID, sessionID string) error
}

type profileService struct {
	db       txRunner
	users    *users.Repository
	sessions sessionManager
	logg     *logger.Logger
}

func NewProfileService(tx txRunner, userRepo *users.Repository, sessions sessionManager, logg *logger.Logger) (ProfileService, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &profileService{db: tx, users: userRepo, sessions: sessions, logg: logg}, nil
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

// Update changes identity fields. A new phone number resets verification.
func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*users.UserDTO, error) {
	if input.Username == nil && input.Email == nil && input.Phone == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}

	var out *users.UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := loadUser(ctx, repo, userID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		var username, email, phone string
		if input.Username != nil {
			username = strings.TrimSpace(*input.Username)
			if n := len([]rune(username)); n < minUsernameLength || n > maxUsernameLength {
				return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
					WithDetails(map[string]string{"username": fmt.Sprintf("must be between %d and %d characters", minUsernameLength, maxUsernameLength)})
			}
			if username != user.Username {
				updates["username"] = username
			}
		}
		if input.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*input.Email))
			if email == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
					WithDetails(map[string]string{"email": "is required"})
			}
			if email != user.Email {
				updates["email"] = email
			}
		}
		if input.Phone != nil {
			phone = strings.TrimSpace(*input.Phone)
			if phone == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
					WithDetails(map[string]string{"phone": "is required"})
			}
			if phone != user.Phone {
				updates["phone"] = phone
				updates["is_verified"] = false
				updates["verification_code"] = nil
				updates["verification_code_expires_at"] = nil
			}
		}

		if len(updates) > 0 {
			taken, err := repo.TakenFields(ctx, username, email, phone, &userID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check identity uniqueness")
			}
			if len(taken) > 0 {
				return takenError(taken)
			}
			if err := repo.UpdateProfile(ctx, userID, updates); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "user already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
			}
		}

		updated, err := loadUser(ctx, repo, userID)
		if err != nil {
			return err
		}
		out = users.FromModel(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the account with its cart and reviews. Accounts with orders
// are kept since orders are historical records.
func (s *profileService) Delete(ctx context.Context, userID uuid.UUID, sessionID string) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if _, err := loadUser(ctx, repo, userID); err != nil {
			return err
		}

		orderCount, err := orders.NewRepository(tx).CountByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
		}
		if orderCount > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "account has orders and cannot be deleted")
		}

		if err := cart.NewRepository(tx).DeleteByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
		}

		reviewRepo := reviews.NewRepository(tx)
		bookIDs, err := reviewRepo.BookIDsByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviewed books")
		}
		if err := reviewRepo.DeleteByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete reviews")
		}
		for _, bookID := range bookIDs {
			if _, err := reviewRepo.RecomputeRating(ctx, bookID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute rating")
			}
		}

		if err := repo.Delete(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if sessionID != "" {
		if err := s.sessions.Revoke(ctx, sessionID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session.revoke_failed")
		}
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "user.deleted")
	}
	return nil
}
