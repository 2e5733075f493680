package orders

import (
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxShippingAddressLength bounds the stored shipping address.
const MaxShippingAddressLength = 255

type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	NextStatuses    []enums.OrderStatus `json:"next_statuses"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	BookID    *uuid.UUID      `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// ItemInput requests quantity copies of a book.
type ItemInput struct {
	BookID   uuid.UUID
	Quantity int
}

// CreateInput is a direct order from an explicit item list.
type CreateInput struct {
	ShippingAddress string
	Items           []ItemInput
}

// UpdateInput changes status and/or shipping address.
type UpdateInput struct {
	Status          *string
	ShippingAddress *string
}

// Line pairs a book with the purchased quantity.
type Line struct {
	Book     models.Book
	Quantity int
}

// NewOrder snapshots titles and prices of lines into a pending order.
func NewOrder(userID uuid.UUID, shippingAddress string, lines []Line) *models.Order {
	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		ShippingAddress: shippingAddress,
		TotalAmount:     decimal.Zero,
		Items:           make([]models.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		bookID := line.Book.ID
		order.Items = append(order.Items, models.OrderItem{
			BookID:   &bookID,
			Title:    line.Book.Title,
			Quantity: line.Quantity,
			Price:    line.Book.Price,
		})
		order.TotalAmount = order.TotalAmount.Add(line.Book.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return order
}

// NormalizeShippingAddress trims the address and enforces its bounds.
func NormalizeShippingAddress(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required").
			WithDetails(map[string]string{"shipping_address": "is required"})
	}
	if len([]rune(value)) > MaxShippingAddressLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipping address is too long").
			WithDetails(map[string]string{"shipping_address": "must be at most 255 characters"})
	}
	return value, nil
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	out := &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		NextStatuses:    o.Status.NextOrderStatuses(),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, OrderItemDTO{
			ID:        item.ID,
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return out
}

func cursorOf(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}
