// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/logging"
)

// Redis stores entries in a shared Redis server so several replicas see the
// same cache.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to cfg.RedisAddr and pings it once.
func NewRedis(ctx context.Context, cfg *config.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	logging.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Redis cache connected")
	return newRedisWithClient(client, cfg.RedisPrefix), nil
}

func newRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

// Get reads key; redis.Nil is a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		recordLookup(BackendRedis, false, nil)
		return nil, false, nil
	}
	if err != nil {
		recordLookup(BackendRedis, false, err)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	recordLookup(BackendRedis, true, nil)
	return data, true, nil
}

// Set writes key with an expiry of ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(ctx, r.key(key), value, ttl).Err()
	recordSetError(BackendRedis, err)
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
