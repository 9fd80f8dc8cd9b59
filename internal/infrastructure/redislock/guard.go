package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-mail-setup/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mailsetup:domain:"

// releaseScript deletes the lock only if it is still held by the caller, so an
// attempt whose lock expired cannot release a newer attempt's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Guard serializes setup attempts per domain across API instances.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient parses a redis:// URL and verifies the server answers.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewGuard holds locks for at most ttl so a crashed instance cannot block a domain forever.
func NewGuard(client *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Guard{client: client, ttl: ttl}
}

// Acquire takes the lock for d on behalf of owner. Re-acquiring a lock the
// owner already holds refreshes its expiry. Returns domain.ErrConflict when
// another owner holds it.
func (g *Guard) Acquire(ctx context.Context, d domain.DomainName, owner string) error {
	key := keyPrefix + d.String()
	ok, err := g.client.SetNX(ctx, key, owner, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire domain lock: %w", err)
	}
	if ok {
		return nil
	}
	holder, err := g.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET
		return g.Acquire(ctx, d, owner)
	case err != nil:
		return fmt.Errorf("read domain lock: %w", err)
	case holder == owner:
		return g.client.PExpire(ctx, key, g.ttl).Err()
	}
	return fmt.Errorf("%s has a setup in progress: %w", d, domain.ErrConflict)
}

// Release drops the lock if owner still holds it.
func (g *Guard) Release(ctx context.Context, d domain.DomainName, owner string) error {
	if err := releaseScript.Run(ctx, g.client, []string{keyPrefix + d.String()}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release domain lock: %w", err)
	}
	return nil
}

func (g *Guard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
