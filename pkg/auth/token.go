package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintSessionToken signs the session cookie value using the configured TTL.
func MintSessionToken(cfg config.SessionConfig, now time.Time, payload SessionTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("session secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("session issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("session ttl must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}

	claims := SessionTokenClaims{
		UserID: payload.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates the signature, issuer and expiry and returns
// typed claims.
func ParseSessionToken(cfg config.SessionConfig, tokenString string) (*SessionTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	claims := &SessionTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID() == "" || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("session token missing identifiers")
	}

	return claims, nil
}
