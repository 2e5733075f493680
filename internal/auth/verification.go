package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/users"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultCodeLength = 6
	defaultCodeTTL    = 15 * time.Minute
)

// Reasons attached to failed verifications.
const (
	ReasonNotFound = "not_found"
	ReasonExpired  = "expired"
	ReasonMismatch = "mismatch"
)

// VerificationService issues and checks phone verification codes.
type VerificationService interface {
	SendCode(ctx context.Context, userID uuid.UUID) (*SendCodeResult, error)
	Verify(ctx context.Context, userID uuid.UUID, code string) error
}

// VerificationParams bundles the verification dependencies.
type VerificationParams struct {
	DB     txRunner
	Users  *users.Repository
	Sender SMSSender
	Config config.VerificationConfig
	Logger *logger.Logger
	Now    func() time.Time
}

type verificationService struct {
	db     txRunner
	users  *users.Repository
	sender SMSSender
	cfg    config.VerificationConfig
	logg   *logger.Logger
	now    func() time.Time
}

func NewVerificationService(params VerificationParams) (VerificationService, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	cfg := params.Config
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = defaultCodeLength
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaultCodeTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &verificationService{
		db:     params.DB,
		users:  params.Users,
		sender: params.Sender,
		cfg:    cfg,
		logg:   params.Logger,
		now:    func() time.Time { return now().UTC() },
	}, nil
}

// SendCode stores a fresh code, replacing any pending one, and delivers it
// to the user's phone.
func (s *verificationService) SendCode(ctx context.Context, userID uuid.UUID) (*SendCodeResult, error) {
	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}
	expiresAt := s.now().Add(s.cfg.CodeTTL)

	var user *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err = loadUser(ctx, repo, userID)
		if err != nil {
			return err
		}
		if user.IsVerified {
			return pkgerrors.New(pkgerrors.CodeConflict, "phone number is already verified")
		}
		if err := repo.SetVerificationCode(ctx, userID, code, expiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification code")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("%s verification code: %s", s.senderLabel(), code)
	if err := s.sender.Send(ctx, user.Phone, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver verification code")
	}

	result := &SendCodeResult{
		Destination: security.MaskPhone(user.Phone),
		ExpiresAt:   expiresAt,
	}
	if s.cfg.ExposeCode {
		result.Code = code
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{
			"phone":      result.Destination,
			"expires_at": expiresAt,
		})
		s.logg.Info(logCtx, "verification.code_sent")
	}
	return result, nil
}

// Verify checks the submitted code. Failures are reported in a fixed order:
// no code sent, code expired, code mismatch. An expired code stays stored.
func (s *verificationService) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	code = strings.TrimSpace(code)
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := loadUser(ctx, repo, userID)
		if err != nil {
			return err
		}

		if user.VerificationCode == nil || user.VerificationCodeExpiresAt == nil {
			return verificationError(ReasonNotFound, "no verification code was sent")
		}
		if s.now().After(*user.VerificationCodeExpiresAt) {
			return verificationError(ReasonExpired, "verification code has expired")
		}
		if !security.CodesEqual(*user.VerificationCode, code) {
			return verificationError(ReasonMismatch, "invalid verification code")
		}

		if err := repo.MarkVerified(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "verification.completed")
		}
		return nil
	})
}

func (s *verificationService) senderLabel() string {
	if label := strings.TrimSpace(s.cfg.SenderLabel); label != "" {
		return label
	}
	return "Bookstore"
}

func loadUser(ctx context.Context, repo *users.Repository, id uuid.UUID) (*models.User, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func verificationError(reason, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]string{"reason": reason})
}
