// Package cache keeps generated analyses in Redis so identical prompts are not
// sent to the provider twice within the TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skufu/AfyaChecker/internal/metrics"
)

const keyPrefix = "afya:analysis:"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is an analysis cache backed by a Redis client.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates the client. No connection is made until the first command.
func New(cfg Config) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return NewWithClient(rdb, cfg.TTL)
}

func NewWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get returns the cached analysis for key. A missing key is not an error.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return "", false, nil
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
