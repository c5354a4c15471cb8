package pkg

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/survey-match-service/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the answer key cache. An empty REDIS_URL disables
// caching and yields a nil client.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}
