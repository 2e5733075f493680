package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "bookstore"

const (
	spaceRateLimit = "rate_limit"
	spaceSession   = "session"
)

// ErrMissing is returned when a looked-up key does not exist.
var ErrMissing = errors.New("redis: key not found")

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Incr(context.Context, string) *redis.IntCmd
	ExpireNX(context.Context, string, time.Duration) *redis.BoolCmd
	TTL(context.Context, string) *redis.DurationCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client owns the two Redis-backed concerns of the API: login sessions and
// fixed-window rate-limit counters. Callers pass bare ids and scopes; keys
// are namespaced here.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// New dials Redis and fails fast when the server does not answer a PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_db":   opts.DB,
			"redis_pool": opts.PoolSize,
		}), "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	// Values carried by the URL win over the env defaults.
	fillInt(&opts.DB, cfg.DB)
	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

// PutSession binds sessionID to userID until ttl elapses.
func (c *Client) PutSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key(spaceSession, sessionID), userID, ttl).Err()
}

// SessionOwner returns the user bound to sessionID, or ErrMissing.
func (c *Client) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	owner, err := c.store.Get(ctx, key(spaceSession, sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMissing
	}
	return owner, err
}

func (c *Client) DropSession(ctx context.Context, sessionID string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, key(spaceSession, sessionID)).Err()
}

// IncrWithTTL bumps the counter for scope. The window starts on the first
// hit; EXPIRE NX leaves a running window untouched and repairs a counter
// that lost its expiry.
func (c *Client) IncrWithTTL(ctx context.Context, scope string, window time.Duration) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	k := key(spaceRateLimit, scope)
	count, err := c.store.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if window > 0 {
		if err := c.store.ExpireNX(ctx, k, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// TTL reports the time left in scope's window, zero when there is none.
func (c *Client) TTL(ctx context.Context, scope string) (time.Duration, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	ttl, err := c.store.TTL(ctx, key(spaceRateLimit, scope)).Result()
	if err != nil {
		return 0, err
	}
	return max(ttl, 0), nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// key joins the namespace, a key space and the caller's id, dropping blanks.
func key(space, id string) string {
	parts := []string{keyNamespace, space}
	if id = strings.TrimSpace(id); id != "" {
		parts = append(parts, id)
	}
	return strings.Join(parts, ":")
}
