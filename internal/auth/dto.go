package auth

import (
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/users"
)

// RegisterInput carries a new account request.
type RegisterInput struct {
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// LoginInput captures the credentials sent to the login endpoint.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the signed session token for the cookie together with
// the authenticated user.
type LoginResult struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      *users.UserDTO
}

// UpdateProfileInput lists the profile fields a user may change. Nil leaves
// the field untouched.
type UpdateProfileInput struct {
	Username *string
	Email    *string
	Phone    *string
}

// SendCodeResult describes an issued verification code. Code is only set
// when codes are exposed for local development.
type SendCodeResult struct {
	Destination string    `json:"destination"`
	ExpiresAt   time.Time `json:"expires_at"`
	Code        string    `json:"code,omitempty"`
}
