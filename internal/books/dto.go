package books

import (
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookDTO is the transport shape for a catalog entry.
type BookDTO struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Price       decimal.Decimal `json:"price"`
	GenreID     uuid.UUID       `json:"genre_id"`
	Genre       string          `json:"genre"`
	Cover       *string         `json:"cover,omitempty"`
	Description *string         `json:"description,omitempty"`
	Year        int             `json:"year"`
	Rating      float64         `json:"rating"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateInput carries a new catalog entry. Genre is a name; unknown genres
// are created on the fly.
type CreateInput struct {
	Title       string
	Author      string
	Price       decimal.Decimal
	Genre       string
	Cover       *string
	Description *string
	Year        int
}

// UpdateInput lists every field a client may change. Nil leaves the column
// untouched.
type UpdateInput struct {
	Title       *string
	Author      *string
	Price       *decimal.Decimal
	Genre       *string
	Cover       *string
	Description *string
	Year        *int
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Author == nil && in.Price == nil && in.Genre == nil &&
		in.Cover == nil && in.Description == nil && in.Year == nil
}

// ListInput filters the catalog listing.
type ListInput struct {
	Genre  string
	Limit  int
	Cursor string
}

func FromModel(b *models.Book) *BookDTO {
	if b == nil {
		return nil
	}
	dto := &BookDTO{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Price:       b.Price,
		GenreID:     b.GenreID,
		Cover:       b.Cover,
		Description: b.Description,
		Year:        b.Year,
		Rating:      b.Rating,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.Genre != nil {
		dto.Genre = b.Genre.Name
	}
	return dto
}

func fromModels(rows []models.Book) []BookDTO {
	out := make([]BookDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func cursorOf(b models.Book) pagination.Cursor {
	return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
}
