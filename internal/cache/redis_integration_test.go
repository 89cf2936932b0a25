// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/testinfra"
)

func TestRedisStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	rc, err := testinfra.NewRedisContainer(ctx, testinfra.WithTestLogger(t))
	if err != nil {
		t.Fatalf("NewRedisContainer() error = %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, rc)

	store, err := Open(ctx, &config.CacheConfig{
		Backend:     BackendRedis,
		RedisAddr:   rc.Addr,
		RedisPrefix: "cloudfrequency:test:",
	})
	if err != nil {
		t.Fatalf("Open(redis) error = %v", err)
	}
	defer store.Close()

	if _, found, err := store.Get(ctx, "Lake-Tahoe"); err != nil || found {
		t.Fatalf("Get() on empty cache = %v, %v", found, err)
	}

	doc := []byte(`{"wikiUrl":"https://en.wikipedia.org/wiki/Lake_Tahoe"}`)
	if err := store.Set(ctx, "Lake-Tahoe", doc, time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := store.Get(ctx, "Lake-Tahoe")
	if err != nil || !found || string(got) != string(doc) {
		t.Fatalf("Get() = %q, %v, %v", got, found, err)
	}

	// Redis expiry has one second granularity.
	time.Sleep(1500 * time.Millisecond)
	if _, found, err := store.Get(ctx, "Lake-Tahoe"); err != nil || found {
		t.Errorf("Get() after ttl = %v, %v; want miss", found, err)
	}
}
