package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits credentials and pending codes.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	Email        string
	Phone        string
	PasswordHash string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Phone:       u.Phone,
		IsVerified:  u.IsVerified,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Username:     strings.TrimSpace(c.Username),
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:        strings.TrimSpace(c.Phone),
		PasswordHash: c.PasswordHash,
	}
}
