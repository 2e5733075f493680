package genres

import (
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
)

// GenreDTO is the transport shape for a genre.
type GenreDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	BookCount int64     `json:"book_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromModel(g *models.Genre, bookCount int64) *GenreDTO {
	if g == nil {
		return nil
	}
	return &GenreDTO{
		ID:        g.ID,
		Name:      g.Name,
		BookCount: bookCount,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}
