// Package cache provides JSON value caches keyed by string, backed either by
// Redis (shared across instances) or by an in-process go-cache store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache stores JSON encodable values.
// Get reports a miss with found=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NewRedisClient opens a client and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// New builds the cache for backend. A redis backend needs client.
func New(backend string, client *redis.Client, prefix string, defaultTTL time.Duration, logger *zap.Logger) (Cache, error) {
	switch backend {
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis cache backend requires a redis client")
		}
		return NewRedisCache(client, prefix, WithDefaultTTL(defaultTTL), WithLogger(logger)), nil
	case BackendMemory, "":
		return NewMemoryCache(defaultTTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
