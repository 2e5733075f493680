package orders

import (
	"context"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
