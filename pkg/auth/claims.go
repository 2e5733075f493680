package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTokenPayload captures the data available when minting a session token.
type SessionTokenPayload struct {
	UserID    uuid.UUID
	SessionID string
}

// SessionTokenClaims is the signed cookie value. The registered jti carries
// the server-side session id.
type SessionTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionID returns the server-side session id embedded as jti.
func (c *SessionTokenClaims) SessionID() string {
	return c.ID
}
