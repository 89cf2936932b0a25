// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package cache provides the key/value stores behind the polygon details
// cache. Values are opaque byte slices that expire after a per-entry TTL.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/metrics"
)

// Store is a get/set-with-expiry key/value store.
type Store interface {
	// Get returns the value for key. A missing or expired key is reported
	// as (nil, false, nil); err is set only when the backend failed.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the backend.
	Close() error
}

// GarbageCollector is implemented by stores that need periodic compaction.
type GarbageCollector interface {
	CollectGarbage() error
}

// Backend names accepted in configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(cfg.CleanupInterval), nil
	case BackendRedis:
		return NewRedis(ctx, cfg)
	case BackendBadger:
		return NewBadger(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// recordLookup updates the hit/miss/error counters for one Get.
func recordLookup(cacheType string, found bool, err error) {
	if err != nil {
		metrics.CacheErrors.WithLabelValues(cacheType, "get").Inc()
		return
	}
	metrics.RecordCacheLookup(cacheType, found)
}

func recordSetError(cacheType string, err error) {
	if err != nil {
		metrics.CacheErrors.WithLabelValues(cacheType, "set").Inc()
	}
}
