package books

import (
	"context"
	"strings"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes book persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a book repository bound to the provided DB.
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

// ListParams filters and pages the catalog listing.
type ListParams struct {
	GenreID *uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

// List returns books newest first. It fetches one row past the limit so the
// caller can detect a following page.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Book, error) {
	q := r.db.WithContext(ctx).Preload("Genre")
	if params.GenreID != nil {
		q = q.Where("genre_id = ?", *params.GenreID)
	}
	var rows []models.Book
	err := pagination.Keyset(q, params.Cursor).
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).Preload("Genre").First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByIDs loads the requested books keyed by id. Missing ids are absent
// from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Book, error) {
	out := make(map[uuid.UUID]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Book
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ExistsDuplicate reports whether another book shares title, author and year.
func (r *Repository) ExistsDuplicate(ctx context.Context, title, author string, year int, exclude *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("title = ? AND author = ? AND year = ?", strings.TrimSpace(title), strings.TrimSpace(author), year)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Omit("Genre").Create(book).Error
}

// CreateBatch inserts books in a single statement.
func (r *Repository) CreateBatch(ctx context.Context, books []models.Book) error {
	if len(books) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Genre").Create(&books).Error
}

// SaveEditable persists the user-editable columns only; rating and
// timestamps are never written from request data.
func (r *Repository) SaveEditable(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).
		Model(book).
		Select("title", "author", "price", "genre_id", "cover", "description", "year", "updated_at").
		Updates(book).Error
}

// Top returns the best rated books, ties broken by recency.
func (r *Repository) Top(ctx context.Context, limit int) ([]models.Book, error) {
	var rows []models.Book
	err := r.db.WithContext(ctx).
		Preload("Genre").
		Order("rating DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateRating overwrites the denormalized rating.
func (r *Repository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("rating", rating).Error
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteCascade removes the books together with their reviews and cart
// lines. Order items keep their snapshot and lose the book reference.
func (r *Repository) DeleteCascade(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("book_id IN ?", ids).Delete(&models.Review{}).Error; err != nil {
		return 0, err
	}
	if err := db.Where("book_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&models.OrderItem{}).
		Where("book_id IN ?", ids).
		UpdateColumn("book_id", nil).Error; err != nil {
		return 0, err
	}
	res := db.Where("id IN ?", ids).Delete(&models.Book{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// DeleteByGenre cascades every book of the genre inside tx.
func (r *Repository) DeleteByGenre(ctx context.Context, tx *gorm.DB, genreID uuid.UUID) (int64, error) {
	repo := r.WithTx(tx)
	var ids []uuid.UUID
	if err := repo.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("genre_id = ?", genreID).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	return repo.DeleteCascade(ctx, ids)
}
