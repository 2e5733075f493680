package reviews

import (
	"context"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes review persistence and the rating aggregate.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByBookAndUser(ctx context.Context, bookID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// UpdateContent rewrites rating and comment of an existing review.
func (r *Repository) UpdateContent(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Model(review).
		Select("rating", "comment", "updated_at").
		Updates(review).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{}).Error
}

// ListByBook returns the book's reviews newest first.
func (r *Repository) ListByBook(ctx context.Context, bookID uuid.UUID) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// BookIDsByUser lists the books a user has reviewed.
func (r *Repository) BookIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id = ?", userID).
		Pluck("book_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Review{}).Error
}

// RecomputeRating sets books.rating to the mean of the book's reviews, or 0
// when none remain, and returns the stored value.
func (r *Repository) RecomputeRating(ctx context.Context, bookID uuid.UUID) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("book_id = ?", bookID).
		Row().
		Scan(&avg)
	if err != nil {
		return 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("rating", avg).Error
	if err != nil {
		return 0, err
	}
	return avg, nil
}
