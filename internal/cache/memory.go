// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/cloudfrequency/internal/logging"
)

// defaultCleanupInterval applies when NewMemory is given a non-positive interval.
const defaultCleanupInterval = 5 * time.Minute

// entry represents a cached item with expiration
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-process store with TTL support.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// Stats tracks cache performance metrics
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// NewMemory creates an in-memory store and starts its background cleanup
// goroutine, which runs every cleanupInterval until Close.
//
// Example:
//
//	store := cache.NewMemory(10 * time.Minute)
//	defer store.Close()
//	_ = store.Set(ctx, "Lake-Tahoe", doc, 24*time.Hour)
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	m := &Memory{
		entries: make(map[string]entry),
		stats: Stats{
			LastCleanup: time.Now(),
		},
		stop: make(chan struct{}),
	}

	go m.cleanupLoop(cleanupInterval)

	return m
}

// Get retrieves a value by key. Expired entries are removed and counted as
// a miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.recordMiss()
		recordLookup(BackendMemory, false, nil)
		return nil, false, nil
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := m.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(m.entries, key)
			m.recordEviction()
		}
		m.mu.Unlock()
		m.recordMiss()
		recordLookup(BackendMemory, false, nil)
		return nil, false, nil
	}

	m.recordHit()
	recordLookup(BackendMemory, true, nil)
	return e.data, true, nil
}

// Set stores a copy of value for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}

	m.stats.mu.Lock()
	m.stats.TotalKeys = int64(len(m.entries))
	m.stats.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// GetStats returns a snapshot of current cache statistics.
func (m *Memory) GetStats() Stats {
	m.stats.mu.RLock()
	defer m.stats.mu.RUnlock()

	return Stats{
		Hits:        m.stats.Hits,
		Misses:      m.stats.Misses,
		Evictions:   m.stats.Evictions,
		TotalKeys:   m.stats.TotalKeys,
		LastCleanup: m.stats.LastCleanup,
	}
}

// HitRate returns the cache hit rate as a percentage
func (m *Memory) HitRate() float64 {
	stats := m.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// cleanupLoop periodically removes expired entries
func (m *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
			stats := m.GetStats()
			logging.Debug().
				Int64("keys", stats.TotalKeys).
				Int64("evictions", stats.Evictions).
				Float64("hit_rate", m.HitRate()).
				Msg("Memory cache cleanup")
		case <-m.stop:
			return
		}
	}
}

// cleanup removes all expired entries
func (m *Memory) cleanup() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	evictions := int64(0)
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			evictions++
		}
	}

	m.stats.mu.Lock()
	m.stats.Evictions += evictions
	m.stats.TotalKeys = int64(len(m.entries))
	m.stats.LastCleanup = now
	m.stats.mu.Unlock()
}

func (m *Memory) recordHit() {
	m.stats.mu.Lock()
	m.stats.Hits++
	m.stats.mu.Unlock()
}

func (m *Memory) recordMiss() {
	m.stats.mu.Lock()
	m.stats.Misses++
	m.stats.mu.Unlock()
}

func (m *Memory) recordEviction() {
	m.stats.mu.Lock()
	m.stats.Evictions++
	m.stats.mu.Unlock()
}
