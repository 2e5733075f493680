package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is unique per (book, user).
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BookID    uuid.UUID `gorm:"column:book_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Rating    float64   `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
