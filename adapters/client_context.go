// Package adapters holds the storage backends a SecureBridge can run on:
// the token store and the rate limiters, each selectable through Config.
package adapters

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	securebridge "github.com/opengovern/secure-bridge"
)

// NewRedisClient connects to Redis and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, cfg securebridge.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewClientContext builds a ClientContext whose token store and limiters
// follow cfg. The returned close function releases any Redis connection.
func NewClientContext(ctx context.Context, cfg *securebridge.Config) (*securebridge.ClientContext, func() error, error) {
	cc := securebridge.NewClientContext(cfg)
	closeFn := func() error { return nil }

	needRedis := cfg.TokenStore.Backend == "redis" || cfg.RateLimit.Backend == "redis"
	var client *redis.Client
	if needRedis {
		var err error
		client, err = NewRedisClient(ctx, cfg.TokenStore.Redis)
		if err != nil {
			return nil, nil, err
		}
		closeFn = client.Close
	}
	prefix := cfg.TokenStore.Redis.Prefix

	switch cfg.TokenStore.Backend {
	case "", "memory":
	case "file":
		cc.Tokens = NewFileTokenStore(cfg.TokenStore.Path)
	case "redis":
		cc.Tokens = NewRedisTokenStore(client, prefix)
	default:
		closeFn()
		return nil, nil, fmt.Errorf("unknown token store backend %q", cfg.TokenStore.Backend)
	}

	switch cfg.RateLimit.Backend {
	case "", "memory":
	case "redis":
		cc.Limiter = NewRedisRateLimiter(client, prefix, cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
		cc.InputLimiter = NewRedisRateLimiter(client, prefix+"input:", cfg.RateLimit.InputMaxAttempts, cfg.RateLimit.Window)
	default:
		closeFn()
		return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
	return cc, closeFn, nil
}
