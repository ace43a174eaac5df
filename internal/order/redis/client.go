package redis

import (
	"context"
	"fmt"
	"time"

	"ms-storefront/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Connect creates a client and checks the connection with a ping and a test write.
func Connect(addr string, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,  // use default DB
		PoolSize: 10, // connection pool size
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", addr, err))
		client.Close()
		return nil, err
	}

	if err := client.Set(ctx, keyPrefix+"healthcheck", "ok", 5*time.Second).Err(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to write test value to Redis: %v", err))
		client.Close()
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s for submission guard", addr))
	return client, nil
}
