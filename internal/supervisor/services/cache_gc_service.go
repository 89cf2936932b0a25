// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package services

import (
	"context"
	"time"

	"github.com/tomtom215/cloudfrequency/internal/cache"
	"github.com/tomtom215/cloudfrequency/internal/logging"
)

const defaultGCInterval = 10 * time.Minute

// CacheGCService periodically compacts a cache backend that needs it.
type CacheGCService struct {
	gc       cache.GarbageCollector
	interval time.Duration
	name     string
}

// NewCacheGCService runs gc every interval (10 minutes if non-positive).
func NewCacheGCService(gc cache.GarbageCollector, interval time.Duration) *CacheGCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &CacheGCService{
		gc:       gc,
		interval: interval,
		name:     "cache-gc",
	}
}

// Serve implements suture.Service. GC failures are logged and retried on the
// next tick rather than restarting the service.
func (s *CacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.CollectGarbage(); err != nil {
				logging.Warn().Err(err).Msg("Cache garbage collection failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *CacheGCService) String() string {
	return s.name
}
