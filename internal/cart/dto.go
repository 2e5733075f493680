package cart

import (
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartDTO is the cart view with totals computed from current book prices.
type CartDTO struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Items         []CartItemDTO   `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	Total         decimal.Decimal `json:"total"`
}

type CartItemDTO struct {
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// AddItemInput adds quantity copies of a book to the cart.
type AddItemInput struct {
	BookID   uuid.UUID
	Quantity int
}

// LineTotal is unit price times quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// BuildDTO assembles the cart view. Lines whose book is gone are skipped.
func BuildDTO(record *models.Cart, items []models.CartItem) *CartDTO {
	out := &CartDTO{
		ID:     record.ID,
		UserID: record.UserID,
		Items:  make([]CartItemDTO, 0, len(items)),
		Total:  decimal.Zero,
	}
	for _, item := range items {
		if item.Book == nil {
			continue
		}
		line := LineTotal(item.Book.Price, item.Quantity)
		out.Items = append(out.Items, CartItemDTO{
			BookID:    item.BookID,
			Title:     item.Book.Title,
			Author:    item.Book.Author,
			UnitPrice: item.Book.Price,
			Quantity:  item.Quantity,
			LineTotal: line,
		})
		out.TotalQuantity += item.Quantity
		out.Total = out.Total.Add(line)
	}
	return out
}
