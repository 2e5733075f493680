package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating        = 0
	MaxRating        = 5
	maxCommentLength = 2000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages per-user book reviews and keeps book ratings current.
type Service interface {
	Upsert(ctx context.Context, userID, bookID uuid.UUID, input UpsertInput) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, bookID uuid.UUID) error
	ListForBook(ctx context.Context, bookID uuid.UUID) ([]ReviewDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// Upsert creates or replaces the caller's review and recomputes the book
// rating in the same transaction.
func (s *service) Upsert(ctx context.Context, userID, bookID uuid.UUID, input UpsertInput) (*ReviewDTO, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	var out *ReviewDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureBook(ctx, tx, bookID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)

		review, err := repo.FindByBookAndUser(ctx, bookID, userID)
		switch {
		case err == nil:
			review.Rating = input.Rating
			review.Comment = input.Comment
			if err := repo.UpdateContent(ctx, review); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = &models.Review{
				BookID:  bookID,
				UserID:  userID,
				Rating:  input.Rating,
				Comment: input.Comment,
			}
			if err := repo.Create(ctx, review); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}

		rating, err := repo.RecomputeRating(ctx, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute rating")
		}
		out = FromModel(review)
		out.BookRating = rating
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, userID, bookID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureBook(ctx, tx, bookID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByBookAndUser(ctx, bookID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		if err := repo.Delete(ctx, review.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
		}
		if _, err := repo.RecomputeRating(ctx, bookID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute rating")
		}
		return nil
	})
}

func (s *service) ListForBook(ctx context.Context, bookID uuid.UUID) ([]ReviewDTO, error) {
	var out []ReviewDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureBook(ctx, tx, bookID); err != nil {
			return err
		}
		rows, err := s.repo.WithTx(tx).ListByBook(ctx, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
		}
		out = make([]ReviewDTO, 0, len(rows))
		for i := range rows {
			out = append(out, *FromModel(&rows[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ensureBook(ctx context.Context, tx *gorm.DB, bookID uuid.UUID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return nil
}

func validateInput(input *UpsertInput) error {
	if math.IsNaN(input.Rating) || input.Rating < MinRating || input.Rating > MaxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"rating": fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)})
	}
	if input.Comment != nil {
		trimmed := strings.TrimSpace(*input.Comment)
		if trimmed == "" {
			input.Comment = nil
		} else if len([]rune(trimmed)) > maxCommentLength {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"comment": fmt.Sprintf("must be at most %d characters", maxCommentLength)})
		} else {
			input.Comment = &trimmed
		}
	}
	return nil
}
