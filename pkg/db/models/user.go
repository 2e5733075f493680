package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a bookstore customer account.
type User struct {
	ID                        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Username                  string     `gorm:"column:username;not null;uniqueIndex"`
	Email                     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone                     string     `gorm:"column:phone;not null;uniqueIndex"`
	PasswordHash              string     `gorm:"column:password_hash;not null"`
	IsVerified                bool       `gorm:"column:is_verified;not null;default:false"`
	VerificationCode          *string    `gorm:"column:verification_code"`
	VerificationCodeExpiresAt *time.Time `gorm:"column:verification_code_expires_at"`
	LastLoginAt               *time.Time `gorm:"column:last_login_at"`
	CreatedAt                 time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
