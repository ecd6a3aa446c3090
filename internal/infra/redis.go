package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nile-pay/nile_pay/internal/config"
)

// NewRedisClient opens the idempotency cache connection with timeouts from
// the application config and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DialTimeout = cfg.ConnectTimeout

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
