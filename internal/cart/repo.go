package cart

import (
	"context"
	"errors"

	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) findByUser(ctx context.Context, userID uuid.UUID, lock bool) (*models.Cart, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record models.Cart
	if err := q.Where("user_id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetOrCreate returns the user's cart, creating it on first access.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	record, err := r.findByUser(ctx, userID, false)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = &models.Cart{UserID: userID}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.findByUser(ctx, userID, false)
		}
		return nil, err
	}
	return record, nil
}

// LockByUser loads the user's cart with a row lock held until the enclosing
// transaction ends.
func (r *Repository) LockByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.findByUser(ctx, userID, true)
}

// ListItems returns the cart lines with their books, oldest first.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindItem(ctx context.Context, cartID, bookID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Book").Create(item).Error
}

func (r *Repository) SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": quantity}).Error
}

// DeleteItem removes one line and reports whether it existed.
func (r *Repository) DeleteItem(ctx context.Context, cartID, bookID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClearItems deletes every line; the cart row itself persists.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// DeleteByUser removes the user's cart and its lines.
func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	sub := tx.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	if err := tx.Where("cart_id IN (?)", sub).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("user_id = ?", userID).Delete(&models.Cart{}).Error
}
