package genres

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes genre persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a genre repository bound to the provided DB.
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

func (r *Repository) List(ctx context.Context) ([]models.Genre, error) {
	var rows []models.Genre
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Genre, error) {
	var genre models.Genre
	if err := r.db.WithContext(ctx).First(&genre, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *Repository) FindByName(ctx context.Context, name string) (*models.Genre, error) {
	var genre models.Genre
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&genre).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

// FindOrCreateByName returns the genre called name, inserting it when absent.
func (r *Repository) FindOrCreateByName(ctx context.Context, name string) (*models.Genre, error) {
	genre, err := r.FindByName(ctx, name)
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return r.Create(ctx, name)
}

func (r *Repository) Create(ctx context.Context, name string) (*models.Genre, error) {
	genre := &models.Genre{Name: strings.TrimSpace(name)}
	if err := r.db.WithContext(ctx).Create(genre).Error; err != nil {
		return nil, err
	}
	return genre, nil
}

// Rename updates the genre name and returns the refreshed row.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Genre, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Genre{}).
		Where("id = ?", id).
		Update("name", strings.TrimSpace(name))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Genre{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountBooks returns how many books reference each of the given genres.
func (r *Repository) CountBooks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		GenreID uuid.UUID
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Select("genre_id, COUNT(*) AS total").
		Where("genre_id IN ?", ids).
		Group("genre_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GenreID] = row.Total
	}
	return out, nil
}
