package redisconn

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"venue-pos/internal/config"
)

// Connect returns a pinged client, or nil when Redis is not configured or not reachable.
// Callers fall back to in-memory stores on nil.
func Connect(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
