// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package details

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tomtom215/cloudfrequency/internal/analysis"
	"github.com/tomtom215/cloudfrequency/internal/cache"
	"github.com/tomtom215/cloudfrequency/internal/earthengine"
	"github.com/tomtom215/cloudfrequency/internal/polygons"
)

const wikiURL = "http://en.wikipedia.org/wiki/"

type fakePolygons map[string]*geojson.Feature

func (f fakePolygons) Feature(id string) (*geojson.Feature, error) {
	if feature, ok := f[id]; ok {
		return feature, nil
	}
	return nil, fmt.Errorf("%w: %q", polygons.ErrUnknownPolygon, id)
}

type fakeComputer struct {
	calls  atomic.Int32
	series analysis.Series
	err    error
	delay  time.Duration
}

func (f *fakeComputer) PolygonTimeSeries(_ context.Context, _ *geojson.Feature) (analysis.Series, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.series, f.err
}

// faultyStore fails every operation.
type faultyStore struct{ sets atomic.Int32 }

func (f *faultyStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (f *faultyStore) Set(context.Context, string, []byte, time.Duration) error {
	f.sets.Add(1)
	return errors.New("connection refused")
}

func (f *faultyStore) Close() error { return nil }

func samplePolygons() fakePolygons {
	return fakePolygons{
		"Lake-Tahoe": geojson.NewFeature(orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}),
	}
}

func sampleSeries() analysis.Series {
	v := 4.5
	return analysis.Series{{Time: 694224000000, Value: &v}, {Time: 725846400000}}
}

func newMemoryStore(t *testing.T) *cache.Memory {
	t.Helper()
	store := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid document %s: %v", data, err)
	}
	return m
}

func TestGet_ComputesAndCaches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemoryStore(t)
	computer := &fakeComputer{series: sampleSeries()}
	svc := NewService(samplePolygons(), computer, store, 24*time.Hour, wikiURL)

	data, err := svc.Get(ctx, "Lake-Tahoe")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := `{"wikiUrl":"http://en.wikipedia.org/wiki/Lake%20Tahoe","timeSeries":[[694224000000,4.5],[725846400000,null]]}`
	if string(data) != want {
		t.Errorf("Get() = %s\nwant %s", data, want)
	}

	cached, found, _ := store.Get(ctx, "Lake-Tahoe")
	if !found || string(cached) != want {
		t.Errorf("cache holds %s (found=%v), want the document", cached, found)
	}

	again, err := svc.Get(ctx, "Lake-Tahoe")
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != want {
		t.Errorf("second Get() = %s", again)
	}
	if got := computer.calls.Load(); got != 1 {
		t.Errorf("computed %d times, want 1", got)
	}
}

func TestGet_ServesCachedDocumentVerbatim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemoryStore(t)
	stored := []byte(`{"wikiUrl":"cached","timeSeries":[]}`)
	_ = store.Set(ctx, "Lake-Tahoe", stored, time.Hour)

	computer := &fakeComputer{}
	svc := NewService(samplePolygons(), computer, store, time.Hour, wikiURL)

	data, err := svc.Get(ctx, "Lake-Tahoe")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(stored) {
		t.Errorf("Get() = %s, want cached bytes", data)
	}
	if computer.calls.Load() != 0 {
		t.Error("cache hit must not compute")
	}
}

func TestGet_RemoteErrorNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemoryStore(t)
	computer := &fakeComputer{err: &earthengine.APIError{StatusCode: 400, Message: "User memory limit exceeded."}}
	svc := NewService(samplePolygons(), computer, store, time.Hour, wikiURL)

	data, err := svc.Get(ctx, "Lake-Tahoe")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	doc := decode(t, data)
	if doc["error"] != "User memory limit exceeded." {
		t.Errorf("error = %v", doc["error"])
	}
	if _, ok := doc["timeSeries"]; ok {
		t.Error("failed document must not carry a time series")
	}
	if doc["wikiUrl"] != wikiURL+"Lake%20Tahoe" {
		t.Errorf("wikiUrl = %v", doc["wikiUrl"])
	}

	if _, found, _ := store.Get(ctx, "Lake-Tahoe"); found {
		t.Error("error documents must not be cached")
	}

	_, _ = svc.Get(ctx, "Lake-Tahoe")
	if got := computer.calls.Load(); got != 2 {
		t.Errorf("computed %d times, want 2 (retry after failure)", got)
	}
}

func TestGet_CircuitOpenIsReported(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{err: fmt.Errorf("%w: breaker", earthengine.ErrCircuitOpen)}
	svc := NewService(samplePolygons(), computer, newMemoryStore(t), time.Hour, wikiURL)

	data, err := svc.Get(context.Background(), "Lake-Tahoe")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if decode(t, data)["error"] == nil {
		t.Error("expected error field")
	}
}

func TestGet_LocalErrorFails(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{err: errors.New("unsupported geometry type LineString")}
	svc := NewService(samplePolygons(), computer, newMemoryStore(t), time.Hour, wikiURL)

	if _, err := svc.Get(context.Background(), "Lake-Tahoe"); err == nil {
		t.Fatal("expected local errors to propagate")
	}
}

func TestGet_UnknownPolygon(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{}
	svc := NewService(samplePolygons(), computer, newMemoryStore(t), time.Hour, wikiURL)

	_, err := svc.Get(context.Background(), "Atlantis")
	if !errors.Is(err, polygons.ErrUnknownPolygon) {
		t.Fatalf("error = %v, want ErrUnknownPolygon", err)
	}
	if computer.calls.Load() != 0 {
		t.Error("unknown polygons must not reach the remote service")
	}
}

func TestGet_CacheFailuresIgnored(t *testing.T) {
	t.Parallel()

	store := &faultyStore{}
	svc := NewService(samplePolygons(), &fakeComputer{series: sampleSeries()}, store, time.Hour, wikiURL)

	data, err := svc.Get(context.Background(), "Lake-Tahoe")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := decode(t, data)["timeSeries"]; !ok {
		t.Error("expected computed time series")
	}
	if store.sets.Load() != 1 {
		t.Errorf("Set called %d times, want 1", store.sets.Load())
	}
}

func TestGet_EmptySeriesIsStillASeries(t *testing.T) {
	t.Parallel()

	svc := NewService(samplePolygons(), &fakeComputer{series: analysis.Series{}}, newMemoryStore(t), time.Hour, wikiURL)

	data, err := svc.Get(context.Background(), "Lake-Tahoe")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decode(t, data)["timeSeries"]; !ok {
		t.Errorf("document %s should carry an empty timeSeries", data)
	}
}

func TestGet_ConcurrentMissesCollapse(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{series: sampleSeries(), delay: 100 * time.Millisecond}
	svc := NewService(samplePolygons(), computer, newMemoryStore(t), time.Hour, wikiURL)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Get(context.Background(), "Lake-Tahoe"); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := computer.calls.Load(); got != 1 {
		t.Errorf("computed %d times, want 1", got)
	}
}

// gatedComputer blocks until released or until its context ends.
type gatedComputer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newGatedComputer() *gatedComputer {
	return &gatedComputer{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedComputer) PolygonTimeSeries(ctx context.Context, _ *geojson.Feature) (analysis.Series, error) {
	g.calls.Add(1)
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return sampleSeries(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGet_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	t.Parallel()

	computer := newGatedComputer()
	store := newMemoryStore(t)
	svc := NewService(samplePolygons(), computer, store, time.Hour, wikiURL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Get(firstCtx, "Lake-Tahoe")
		firstErr <- err
	}()

	select {
	case <-computer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("computation did not start")
	}

	type result struct {
		data []byte
		err  error
	}
	second := make(chan result, 1)
	go func() {
		data, err := svc.Get(context.Background(), "Lake-Tahoe")
		second <- result{data, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("first caller error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	time.Sleep(20 * time.Millisecond)
	close(computer.release)

	select {
	case res := <-second:
		if res.err != nil {
			t.Fatalf("second caller error = %v", res.err)
		}
		if _, ok := decode(t, res.data)["timeSeries"]; !ok {
			t.Errorf("second caller got %s, want a time series", res.data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got a document")
	}

	if got := computer.calls.Load(); got != 1 {
		t.Errorf("computed %d times, want 1", got)
	}
	if _, found, _ := store.Get(context.Background(), "Lake-Tahoe"); !found {
		t.Error("document should be cached after the shared computation")
	}
}

func TestGet_ComputeTimeout(t *testing.T) {
	t.Parallel()

	computer := newGatedComputer()
	svc := NewService(samplePolygons(), computer, newMemoryStore(t), time.Hour, wikiURL,
		WithComputeTimeout(20*time.Millisecond))

	_, err := svc.Get(context.Background(), "Lake-Tahoe")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestWithComputeTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultComputeTimeout},
		{-time.Second, DefaultComputeTimeout},
		{30 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		svc := NewService(nil, nil, nil, 0, wikiURL, WithComputeTimeout(tt.in))
		if svc.computeTimeout != tt.want {
			t.Errorf("WithComputeTimeout(%v) = %v, want %v", tt.in, svc.computeTimeout, tt.want)
		}
	}
}

func TestWikiURL(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, 0, wikiURL)
	tests := map[string]string{
		"Lake-Tahoe":        wikiURL + "Lake%20Tahoe",
		"Anhui":             wikiURL + "Anhui",
		"Sao-Paulo-(state)": wikiURL + "Sao%20Paulo%20(state)",
	}
	for id, want := range tests {
		if got := svc.WikiURL(id); got != want {
			t.Errorf("WikiURL(%q) = %q, want %q", id, got, want)
		}
	}
}
