package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aigyoo-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForRevokedToken generates the deny-list key of a session token id.
func (c *RedisCache) KeyForRevokedToken(jti string) string {
	return fmt.Sprintf("session:revoked:%s", jti)
}

// RevokeToken puts a token id on the deny-list until the token would expire
// anyway. Already expired tokens are ignored.
func (c *RedisCache) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.Client.Set(ctx, c.KeyForRevokedToken(jti), 1, ttl).Err()
}

func (c *RedisCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := c.Client.Get(ctx, c.KeyForRevokedToken(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
