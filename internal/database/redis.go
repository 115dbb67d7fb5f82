package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedis opens a client and verifies it with a ping.
func NewRedis(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("redis connection established", slog.String("addr", cfg.Addr))
	return client, nil
}

// RedisChecker adapts a redis client to the health check interface.
type RedisChecker struct {
	Client *redis.Client
}

func (c RedisChecker) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
