package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book is a catalog entry. Rating is the mean of the book's reviews and is
// recomputed whenever a review changes.
type Book struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Title       string          `gorm:"column:title;not null"`
	Author      string          `gorm:"column:author;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	GenreID     uuid.UUID       `gorm:"column:genre_id;type:uuid;not null"`
	Genre       *Genre          `gorm:"foreignKey:GenreID"`
	Cover       *string         `gorm:"column:cover"`
	Description *string         `gorm:"column:description"`
	Year        int             `gorm:"column:year;not null"`
	Rating      float64         `gorm:"column:rating;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
