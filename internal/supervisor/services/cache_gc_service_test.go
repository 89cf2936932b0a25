// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type countingGC struct {
	calls atomic.Int32
	err   error
}

func (c *countingGC) CollectGarbage() error {
	c.calls.Add(1)
	return c.err
}

func TestCacheGCService(t *testing.T) {
	t.Parallel()

	var _ suture.Service = (*CacheGCService)(nil)

	tests := []struct {
		name string
		err  error
	}{
		{"collects on every tick", nil},
		{"keeps running after failures", errors.New("value log busy")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gc := &countingGC{err: tt.err}
			svc := NewCacheGCService(gc, 5*time.Millisecond)

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			deadline := time.Now().Add(2 * time.Second)
			for gc.calls.Load() < 3 {
				if time.Now().After(deadline) {
					t.Fatalf("only %d collections", gc.calls.Load())
				}
				time.Sleep(5 * time.Millisecond)
			}

			cancel()
			if err := <-errCh; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		})
	}
}

func TestNewCacheGCService_DefaultInterval(t *testing.T) {
	t.Parallel()

	svc := NewCacheGCService(&countingGC{}, 0)
	if svc.interval != defaultGCInterval {
		t.Errorf("interval = %v, want %v", svc.interval, defaultGCInterval)
	}
	if svc.String() != "cache-gc" {
		t.Errorf("String() = %q", svc.String())
	}
}
