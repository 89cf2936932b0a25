// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package testinfra provides container-backed infrastructure for integration tests.
//
// Containers are managed with testcontainers-go and every file in the package
// carries the integration build tag, so the default test run never needs Docker.
//
// # Redis Container
//
// RedisContainer starts a throwaway Redis server for the shared details cache:
//
//	func TestRedisCache(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//
//	    store, err := cache.NewRedis(ctx, &config.CacheConfig{RedisAddr: rc.Addr})
//	    // ...
//	}
//
// Run with:
//
//	go test -tags integration ./...
package testinfra
