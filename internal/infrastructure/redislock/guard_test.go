package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-mail-setup/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T, ttl time.Duration) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewGuard(client, ttl), mr
}

func TestAcquire_SecondOwnerConflicts(t *testing.T) {
	g, _ := newGuard(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	err := g.Acquire(ctx, "example.com", "a2")
	assert.ErrorIs(t, err, domain.ErrConflict)

	// other domains are independent
	assert.NoError(t, g.Acquire(ctx, "example.org", "a2"))
}

func TestAcquire_SameOwnerIsReentrant(t *testing.T) {
	g, _ := newGuard(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	assert.NoError(t, g.Acquire(ctx, "example.com", "a1"))
}

func TestRelease_OnlyByOwner(t *testing.T) {
	g, mr := newGuard(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	require.NoError(t, g.Release(ctx, "example.com", "a2"))
	assert.True(t, mr.Exists(keyPrefix+"example.com"))

	require.NoError(t, g.Release(ctx, "example.com", "a1"))
	assert.False(t, mr.Exists(keyPrefix+"example.com"))
	assert.NoError(t, g.Acquire(ctx, "example.com", "a2"))
}

func TestAcquire_ExpiredLockCanBeTaken(t *testing.T) {
	g, mr := newGuard(t, time.Second)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	mr.FastForward(2 * time.Second)
	assert.NoError(t, g.Acquire(ctx, "example.com", "a2"))
}

func TestAcquire_SameOwnerExtendsTTL(t *testing.T) {
	g, mr := newGuard(t, 2*time.Second)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	for range 3 {
		mr.FastForward(1500 * time.Millisecond)
		require.NoError(t, g.Acquire(ctx, "example.com", "a1"))
	}
	assert.Equal(t, 2*time.Second, mr.TTL(keyPrefix+"example.com"))
	assert.ErrorIs(t, g.Acquire(ctx, "example.com", "a2"), domain.ErrConflict)
}

func TestPing(t *testing.T) {
	g, mr := newGuard(t, time.Minute)
	require.NoError(t, g.Ping(context.Background()))

	mr.Close()
	assert.Error(t, g.Ping(context.Background()))
}
