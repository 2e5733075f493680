package cart

import (
	"context"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart and
// checkout services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	LockByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindItem(ctx context.Context, cartID, bookID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, bookID uuid.UUID) (bool, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
