package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// Order is an immutable record of a purchase; only status and shipping
// address change after creation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress string            `gorm:"column:shipping_address;not null"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
