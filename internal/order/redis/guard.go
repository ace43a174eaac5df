package redis

import (
	"context"
	"fmt"
	"time"

	"ms-storefront/internal/logger"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "order_submit:"

// Guard rejects a repeated submission of the same selection within TTL.
type Guard struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewGuard(client *redis.Client, ttl time.Duration, log *logger.Logger) *Guard {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Guard{Client: client, TTL: ttl, Logger: log}
}

// Acquire claims key for orderID. False means another submission holds it.
func (g *Guard) Acquire(ctx context.Context, key, orderID string) (bool, error) {
	ok, err := g.Client.SetNX(ctx, keyPrefix+key, orderID, g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok && g.Logger != nil {
		g.Logger.Warn("REDIS", fmt.Sprintf("Submission %s already in flight", key))
	}
	return ok, nil
}

// Release drops the claim, but only if orderID still owns it.
func (g *Guard) Release(ctx context.Context, key, orderID string) error {
	fullKey := keyPrefix + key
	val, err := g.Client.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val != orderID {
		return nil
	}
	return g.Client.Del(ctx, fullKey).Err()
}

// Holder returns the order id currently holding key, or "" when free.
func (g *Guard) Holder(ctx context.Context, key string) (string, error) {
	val, err := g.Client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
