package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
)

func newMiniRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{URL: "redis://" + server.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

func TestSessionExpiresWithTTL(t *testing.T) {
	client, server := newMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.PutSession(ctx, "sess-1", "user-1", time.Hour))
	assert.True(t, server.Exists("bookstore:session:sess-1"))

	owner, err := client.SessionOwner(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)

	server.FastForward(time.Hour + time.Second)
	_, err = client.SessionOwner(ctx, "sess-1")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestRateWindowResetsAfterExpiry(t *testing.T) {
	client, server := newMiniRedis(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, "email:login:abc", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
	assert.Equal(t, time.Minute, server.TTL("bookstore:rate_limit:email:login:abc"))

	server.FastForward(30 * time.Second)
	left, err := client.TTL(ctx, "email:login:abc")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, left)

	server.FastForward(31 * time.Second)
	count, err := client.IncrWithTTL(ctx, "email:login:abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNewFailsWhenServerIsDown(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := New(context.Background(), config.RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}
