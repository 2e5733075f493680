package reviews

import (
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/google/uuid"
)

type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	BookID     uuid.UUID `json:"book_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     float64   `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	BookRating float64   `json:"book_rating"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertInput is the body of a review submission.
type UpsertInput struct {
	Rating  float64
	Comment *string
}

func FromModel(r *models.Review) *ReviewDTO {
	if r == nil {
		return nil
	}
	return &ReviewDTO{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
