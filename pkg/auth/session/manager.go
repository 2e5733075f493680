package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
	redisclient "github.com/angelmondragon/bookstore-backend/pkg/redis"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session id has no live entry.
var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	PutSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	SessionOwner(ctx context.Context, sessionID string) (string, error)
	DropSession(ctx context.Context, sessionID string) error
}

// Manager stores login sessions in Redis, keyed by an opaque session id that
// is also the jti of the signed session token.
type Manager struct {
	store sessionStore
	ttl   time.Duration
}

// Resolver exposes the read-only surface needed by middleware.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string) (uuid.UUID, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		ttl:   cfg.TTL,
	}, nil
}

// TTL reports how long new sessions live.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create opens a session for the user and returns its id.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	sessionID := NewSessionID()
	if err := m.store.PutSession(ctx, sessionID, userID.String(), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionID, nil
}

// Resolve returns the user bound to the session.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (uuid.UUID, error) {
	if strings.TrimSpace(sessionID) == "" {
		return uuid.Nil, ErrSessionNotFound
	}
	raw, err := m.store.SessionOwner(ctx, sessionID)
	if errors.Is(err, redisclient.ErrMissing) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return userID, nil
}

// Revoke deletes the session. Revoking an unknown session is not an error.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.DropSession(ctx, sessionID)
}

// NewSessionID produces the identifier used as the token jti and Redis key.
func NewSessionID() string {
	return uuid.NewString()
}
